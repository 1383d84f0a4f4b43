// Package ledger defines the persistence ports the budgeting services run
// against. Implementations: storage (SQLite) and memory (tests, demo mode).
//
// Aggregate queries are purpose-built rather than a generic filter DSL so
// the engine stays free of persistence technology and each store can answer
// them with a single query or a single pass.
package ledger

import (
	"context"
	"time"

	"sobres/internal/core"
)

type AccountRepository interface {
	CreateAccount(ctx context.Context, a *core.Account) error
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	// SetPaymentCategory records the 1:1 link between a credit card and its
	// card-payment envelope.
	SetPaymentCategory(ctx context.Context, accountID, categoryID int64) error
}

type CategoryRepository interface {
	CreateGroup(ctx context.Context, g *core.CategoryGroup) error
	GroupByName(ctx context.Context, name string) (core.CategoryGroup, error)
	// ActiveGroups returns active groups ordered by (order, name).
	ActiveGroups(ctx context.Context) ([]core.CategoryGroup, error)

	CreateCategory(ctx context.Context, c *core.Category) error
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	// ActiveByGroup returns a group's active categories ordered by
	// (order, name).
	ActiveByGroup(ctx context.Context, groupID int64) ([]core.Category, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
}

type PayeeRepository interface {
	CreatePayee(ctx context.Context, p *core.Payee) error
	GetPayee(ctx context.Context, id int64) (core.Payee, error)
	ListPayees(ctx context.Context) ([]core.Payee, error)

	CreateRule(ctx context.Context, m *core.PayeeMatch) error
	// ListRules returns every match rule ordered by (priority, id); the
	// ingestor applies the first hit.
	ListRules(ctx context.Context) ([]core.PayeeMatch, error)
}

type AssignmentRepository interface {
	// UpsertAssignment creates or replaces the (category, month) row.
	// month must already be normalized to the first of the month.
	UpsertAssignment(ctx context.Context, categoryID int64, month time.Time, amount core.Money) error
	// AssignedInMonth returns the assignment for exactly that month, zero
	// if none exists.
	AssignedInMonth(ctx context.Context, categoryID int64, month time.Time) (core.Money, error)
	// AssignedThrough sums assignments for months <= month.
	AssignedThrough(ctx context.Context, categoryID int64, month time.Time) (core.Money, error)
	// AssignedAllTime sums every assignment ever made, past and future.
	AssignedAllTime(ctx context.Context) (core.Money, error)
}

// TransactionFilter narrows List. Zero values mean "any".
type TransactionFilter struct {
	AccountID     int64
	CategoryID    int64
	Uncategorized bool
	Limit         int
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, t *core.Transaction) error
	// CreateTransferPair persists both legs and links them, atomically.
	CreateTransferPair(ctx context.Context, out, in *core.Transaction) error
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	// ListTransactions returns newest-first (date desc, id desc).
	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)

	// FindByImportID resolves the strong dedup key; core.ErrNotFound when
	// no transaction carries it.
	FindByImportID(ctx context.Context, importID string) (core.Transaction, error)
	// FindByContent returns transactions on the account with the same date
	// and amount; the caller compares normalized payee text.
	FindByContent(ctx context.Context, accountID int64, date time.Time, amount core.Money) ([]core.Transaction, error)
	SetImportID(ctx context.Context, id int64, importID string) error
	SetTransactionCategory(ctx context.Context, id, categoryID int64) error

	// LinkPair points both transactions at each other, optionally clearing
	// both categories, as one atomic mutation.
	LinkPair(ctx context.Context, idA, idB int64, clearCategories bool) error
	// UnlinkPair clears the link on the transaction and its partner
	// atomically. No-op when the transaction is not linked.
	UnlinkPair(ctx context.Context, id int64) error

	// SumByAccount is the account's current balance by definition.
	SumByAccount(ctx context.Context, accountID int64) (core.Money, error)
	// SumLiquidOnBudget sums every transaction on on-budget checking,
	// savings and cash accounts, all time.
	SumLiquidOnBudget(ctx context.Context) (core.Money, error)

	// CardSpendingThrough sums, per credit-card account, categorized
	// non-transfer transactions dated before the bound (absolute value).
	CardSpendingThrough(ctx context.Context, before time.Time) (map[int64]core.Money, error)
	// CardPaymentsThrough sums, per credit-card account, positive transfer
	// legs dated before the bound.
	CardPaymentsThrough(ctx context.Context, before time.Time) (map[int64]core.Money, error)
	// CardPaymentsBetween sums the uncategorized positive transfer legs on
	// one card account within [from, before).
	CardPaymentsBetween(ctx context.Context, accountID int64, from, before time.Time) (core.Money, error)

	// CategoryActivity sums the category's transactions within
	// [from, before) — zero from means all history — counting a transfer
	// leg only when its partner account is off-budget.
	CategoryActivity(ctx context.Context, categoryID int64, from, before time.Time) (core.Money, error)
}

// Store bundles every repository; both backends satisfy it.
type Store interface {
	AccountRepository
	CategoryRepository
	PayeeRepository
	AssignmentRepository
	TransactionRepository
}
