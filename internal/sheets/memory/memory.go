// Package memory is an in-process LedgerWriter used by tests and by the
// memory data backend, where no spreadsheet exists.
package memory

import (
	"context"
	"fmt"
	"sync"

	"sobres/internal/sheets"
)

type Writer struct {
	mu   sync.Mutex
	rows []sheets.Row
}

var _ sheets.LedgerWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

// Append stores the row and returns a synthetic row reference.
func (w *Writer) Append(_ context.Context, r sheets.Row) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, r)
	return fmt.Sprintf("memory!A%d", len(w.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []sheets.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]sheets.Row, len(w.rows))
	copy(out, w.rows)
	return out
}
