// Package worker mirrors ledger transactions into the spreadsheet. It
// consumes sync messages published by the API and resolves each one against
// the database, so the spreadsheet always reflects the stored row.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"sobres/internal/amqp"
	"sobres/internal/core"
	"sobres/internal/ledger"
	"sobres/internal/sheets"
)

type ExportWorker struct {
	store  ledger.Store
	writer sheets.LedgerWriter
}

func NewExportWorker(store ledger.Store, writer sheets.LedgerWriter) *ExportWorker {
	return &ExportWorker{store: store, writer: writer}
}

// HandleSyncMessage exports one transaction to the spreadsheet.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	tx, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", msg.ID, err)
	}

	row, err := w.buildRow(ctx, tx)
	if err != nil {
		return err
	}

	ref, err := w.writer.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append to ledger sheet: %w", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"id", tx.ID,
		"sheets_ref", ref,
		"amount", tx.Amount)
	return nil
}

// buildRow denormalizes the transaction for the spreadsheet. Lookups that
// fail on optional references degrade to empty cells instead of failing the
// export.
func (w *ExportWorker) buildRow(ctx context.Context, tx core.Transaction) (sheets.Row, error) {
	account, err := w.store.GetAccount(ctx, tx.AccountID)
	if err != nil {
		return sheets.Row{}, fmt.Errorf("get account %d: %w", tx.AccountID, err)
	}

	row := sheets.Row{
		Date:    tx.Date.Format(core.DateLayout),
		Account: account.Name,
		Payee:   tx.RawPayee,
		Amount:  tx.Amount,
		Memo:    tx.Memo,
	}

	if tx.PayeeID != 0 {
		if payee, err := w.store.GetPayee(ctx, tx.PayeeID); err == nil {
			row.Payee = payee.Name
		} else {
			slog.WarnContext(ctx, "Payee lookup failed, using raw text",
				"transaction_id", tx.ID, "payee_id", tx.PayeeID, "error", err)
		}
	}
	if tx.CategoryID != 0 {
		if cat, err := w.store.GetCategory(ctx, tx.CategoryID); err == nil {
			row.Category = cat.Name
		} else {
			slog.WarnContext(ctx, "Category lookup failed, exporting uncategorized",
				"transaction_id", tx.ID, "category_id", tx.CategoryID, "error", err)
		}
	}
	return row, nil
}

// ExportBacklog re-exports the most recent transactions, a recovery path for
// messages lost while the worker was down.
func (w *ExportWorker) ExportBacklog(ctx context.Context, limit int) error {
	txs, err := w.store.ListTransactions(ctx, ledger.TransactionFilter{Limit: limit})
	if err != nil {
		return fmt.Errorf("list recent transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Exporting transaction backlog", "count", len(txs))
	for _, tx := range txs {
		row, err := w.buildRow(ctx, tx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to build export row", "id", tx.ID, "error", err)
			continue
		}
		if _, err := w.writer.Append(ctx, row); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "id", tx.ID, "error", err)
			continue
		}
	}
	return nil
}
