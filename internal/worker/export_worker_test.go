package worker

import (
	"context"
	"testing"
	"time"

	"sobres/internal/amqp"
	"sobres/internal/core"
	ledgermem "sobres/internal/ledger/memory"
	sheetsmem "sobres/internal/sheets/memory"
)

func TestExportWorker_HandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.NewStore()
	writer := sheetsmem.New()

	acc := core.Account{Name: "Cuenta Corriente", Type: core.AccountChecking}
	if err := store.CreateAccount(ctx, &acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	group := core.CategoryGroup{Name: "Vida Diaria", IsActive: true}
	if err := store.CreateGroup(ctx, &group); err != nil {
		t.Fatalf("create group: %v", err)
	}
	cat := core.Category{Name: "Supermercado", GroupID: group.ID, IsActive: true}
	if err := store.CreateCategory(ctx, &cat); err != nil {
		t.Fatalf("create category: %v", err)
	}
	payee := core.Payee{Name: "Lider"}
	if err := store.CreatePayee(ctx, &payee); err != nil {
		t.Fatalf("create payee: %v", err)
	}
	tx := core.Transaction{
		AccountID:  acc.ID,
		CategoryID: cat.ID,
		PayeeID:    payee.ID,
		Date:       time.Date(2026, time.August, 12, 0, 0, 0, 0, time.UTC),
		Amount:     -12500,
		RawPayee:   "LIDER EXPRESS STGO",
		Memo:       "compra semanal",
	}
	if err := store.CreateTransaction(ctx, &tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	w := NewExportWorker(store, writer)
	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := writer.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.Date != "2026-08-12" {
		t.Errorf("date = %q", row.Date)
	}
	if row.Account != "Cuenta Corriente" {
		t.Errorf("account = %q", row.Account)
	}
	if row.Payee != "Lider" {
		t.Errorf("payee = %q, want the resolved name", row.Payee)
	}
	if row.Category != "Supermercado" {
		t.Errorf("category = %q", row.Category)
	}
	if row.Amount != -12500 {
		t.Errorf("amount = %d", int64(row.Amount))
	}
	if row.Memo != "compra semanal" {
		t.Errorf("memo = %q", row.Memo)
	}
}

func TestExportWorker_RawPayeeFallback(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.NewStore()
	writer := sheetsmem.New()

	acc := core.Account{Name: "Cuenta", Type: core.AccountChecking}
	if err := store.CreateAccount(ctx, &acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	tx := core.Transaction{
		AccountID: acc.ID,
		Date:      time.Date(2026, time.August, 12, 0, 0, 0, 0, time.UTC),
		Amount:    -8000,
		RawPayee:  "COPEC LAS CONDES",
	}
	if err := store.CreateTransaction(ctx, &tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	w := NewExportWorker(store, writer)
	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := writer.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Payee != "COPEC LAS CONDES" {
		t.Errorf("payee = %q, want the raw bank text", rows[0].Payee)
	}
	if rows[0].Category != "" {
		t.Errorf("category = %q, want empty", rows[0].Category)
	}
}

func TestExportWorker_UnknownTransaction(t *testing.T) {
	w := NewExportWorker(ledgermem.NewStore(), sheetsmem.New())
	if err := w.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage(999)); err == nil {
		t.Error("missing transaction accepted")
	}
}

func TestExportWorker_ExportBacklog(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.NewStore()
	writer := sheetsmem.New()

	acc := core.Account{Name: "Cuenta", Type: core.AccountChecking}
	if err := store.CreateAccount(ctx, &acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	for i := 0; i < 3; i++ {
		tx := core.Transaction{
			AccountID: acc.ID,
			Date:      time.Date(2026, time.August, 10+i, 0, 0, 0, 0, time.UTC),
			Amount:    core.Money(-1000 * (i + 1)),
			RawPayee:  "LIDER",
		}
		if err := store.CreateTransaction(ctx, &tx); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	w := NewExportWorker(store, writer)
	if err := w.ExportBacklog(ctx, 2); err != nil {
		t.Fatalf("backlog: %v", err)
	}
	if got := len(writer.Rows()); got != 2 {
		t.Errorf("exported %d rows, want the limit of 2", got)
	}

	if err := NewExportWorker(ledgermem.NewStore(), sheetsmem.New()).ExportBacklog(ctx, 10); err != nil {
		t.Errorf("empty ledger backlog: %v", err)
	}
}
