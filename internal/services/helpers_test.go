package services

import (
	"context"
	"testing"
	"time"

	"sobres/internal/core"
	"sobres/internal/ledger/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustAccount(t *testing.T, store *memory.Store, acc core.Account) core.Account {
	t.Helper()
	if err := store.CreateAccount(context.Background(), &acc); err != nil {
		t.Fatalf("create account %q: %v", acc.Name, err)
	}
	return acc
}

func mustGroup(t *testing.T, store *memory.Store, name string) core.CategoryGroup {
	t.Helper()
	g := core.CategoryGroup{Name: name, IsActive: true}
	if err := store.CreateGroup(context.Background(), &g); err != nil {
		t.Fatalf("create group %q: %v", name, err)
	}
	return g
}

func mustCategory(t *testing.T, store *memory.Store, groupID int64, name string) core.Category {
	t.Helper()
	c := core.Category{Name: name, GroupID: groupID, IsActive: true}
	if err := store.CreateCategory(context.Background(), &c); err != nil {
		t.Fatalf("create category %q: %v", name, err)
	}
	return c
}

func mustTx(t *testing.T, store *memory.Store, tx core.Transaction) core.Transaction {
	t.Helper()
	if err := store.CreateTransaction(context.Background(), &tx); err != nil {
		t.Fatalf("create transaction %q: %v", tx.RawPayee, err)
	}
	return tx
}

// findRow digs the per-category row out of a summary.
func findRow(t *testing.T, s core.Summary, categoryID int64) core.CategorySummary {
	t.Helper()
	for _, g := range s.Groups {
		for _, row := range g.Categories {
			if row.CategoryID == categoryID {
				return row
			}
		}
	}
	t.Fatalf("category %d not present in summary", categoryID)
	return core.CategorySummary{}
}
