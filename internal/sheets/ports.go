package sheets

import (
	"context"

	"sobres/internal/core"
)

// Row is one exported ledger line, already denormalized for the spreadsheet.
type Row struct {
	Date     string
	Account  string
	Payee    string
	Category string
	Amount   core.Money
	Memo     string
}

// LedgerWriter is the outbound port for the spreadsheet mirror.
type LedgerWriter interface {
	Append(ctx context.Context, r Row) (rowRef string, err error)
}
