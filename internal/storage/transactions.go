package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sobres/internal/core"
	"sobres/internal/ledger"
)

const txColumns = `id, account_id, category_id, date, payee_id, amount,
	raw_payee, memo, import_id, transfer_transaction_id, created_at`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return r.insertTransaction(ctx, r.db, t)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLiteRepository) insertTransaction(ctx context.Context, db execer, t *core.Transaction) error {
	t.Date = core.Day(t.Date)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO transactions (account_id, category_id, date, payee_id,
			amount, raw_payee, memo, import_id, transfer_transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.AccountID, nullableID(t.CategoryID), t.Date.Format(core.DateLayout),
		nullableID(t.PayeeID), int64(t.Amount), t.RawPayee, t.Memo,
		nullableText(t.ImportID), nullableID(t.TransferID),
		t.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateTransferPair(ctx context.Context, out, in *core.Transaction) error {
	if err := out.Validate(); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := r.insertTransaction(ctx, tx, out); err != nil {
			return err
		}
		if err := r.insertTransaction(ctx, tx, in); err != nil {
			return err
		}
		if err := linkRows(ctx, tx, out.ID, in.ID, false); err != nil {
			return err
		}
		out.TransferID = in.ID
		in.TransferID = out.ID
		return nil
	})
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	if f.AccountID != 0 {
		conds = append(conds, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != 0 {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Uncategorized {
		conds = append(conds, "category_id IS NULL")
	}

	query := `SELECT ` + txColumns + ` FROM transactions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (r *SQLiteRepository) FindByImportID(ctx context.Context, importID string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE import_id = ?`, importID)
	return scanTransaction(row)
}

func (r *SQLiteRepository) FindByContent(ctx context.Context, accountID int64, date time.Time, amount core.Money) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE account_id = ? AND date = ? AND amount = ?
		ORDER BY id`,
		accountID, core.Day(date).Format(core.DateLayout), int64(amount))
	if err != nil {
		return nil, fmt.Errorf("find by content: %w", err)
	}
	return collectTransactions(rows)
}

func (r *SQLiteRepository) SetImportID(ctx context.Context, id int64, importID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET import_id = ? WHERE id = ?`,
		nullableText(importID), id)
	if err != nil {
		return fmt.Errorf("set import id: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) SetTransactionCategory(ctx context.Context, id, categoryID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE id = ?`,
		nullableID(categoryID), id)
	if err != nil {
		return fmt.Errorf("set transaction category: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) LinkPair(ctx context.Context, idA, idB int64, clearCategories bool) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return linkRows(ctx, tx, idA, idB, clearCategories)
	})
}

func linkRows(ctx context.Context, tx *sql.Tx, idA, idB int64, clearCategories bool) error {
	set := "transfer_transaction_id = ?"
	if clearCategories {
		set += ", category_id = NULL"
	}
	for _, pair := range [][2]int64{{idA, idB}, {idB, idA}} {
		res, err := tx.ExecContext(ctx,
			"UPDATE transactions SET "+set+" WHERE id = ?", pair[1], pair[0])
		if err != nil {
			return fmt.Errorf("link transactions: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) UnlinkPair(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var partner sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT transfer_transaction_id FROM transactions WHERE id = ?`, id).
			Scan(&partner)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load transfer link: %w", err)
		}
		if !partner.Valid {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE transactions SET transfer_transaction_id = NULL
			WHERE id IN (?, ?)`, id, partner.Int64)
		if err != nil {
			return fmt.Errorf("unlink transactions: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) SumByAccount(ctx context.Context, accountID int64) (core.Money, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM transactions WHERE account_id = ?`, accountID).
		Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum by account: %w", err)
	}
	return core.Money(total.Int64), nil
}

func (r *SQLiteRepository) SumLiquidOnBudget(ctx context.Context) (core.Money, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(t.amount)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.off_budget = 0 AND a.type IN ('checking', 'savings', 'cash')`).
		Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum liquid on budget: %w", err)
	}
	return core.Money(total.Int64), nil
}

func (r *SQLiteRepository) CardSpendingThrough(ctx context.Context, before time.Time) (map[int64]core.Money, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.account_id, SUM(t.amount)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.type = 'credit_card'
		  AND t.date < ?
		  AND t.transfer_transaction_id IS NULL
		  AND t.category_id IS NOT NULL
		GROUP BY t.account_id`,
		before.Format(core.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("card spending: %w", err)
	}
	sums, err := collectAccountSums(rows)
	if err != nil {
		return nil, err
	}
	for id, v := range sums {
		sums[id] = v.Abs()
	}
	return sums, nil
}

func (r *SQLiteRepository) CardPaymentsThrough(ctx context.Context, before time.Time) (map[int64]core.Money, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.account_id, SUM(t.amount)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.type = 'credit_card'
		  AND t.date < ?
		  AND t.transfer_transaction_id IS NOT NULL
		  AND t.amount > 0
		GROUP BY t.account_id`,
		before.Format(core.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("card payments: %w", err)
	}
	return collectAccountSums(rows)
}

func (r *SQLiteRepository) CardPaymentsBetween(ctx context.Context, accountID int64, from, before time.Time) (core.Money, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(amount) FROM transactions
		WHERE account_id = ?
		  AND transfer_transaction_id IS NOT NULL
		  AND category_id IS NULL
		  AND amount > 0
		  AND date >= ? AND date < ?`,
		accountID, from.Format(core.DateLayout), before.Format(core.DateLayout)).
		Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("card payments in month: %w", err)
	}
	return core.Money(total.Int64), nil
}

func (r *SQLiteRepository) CategoryActivity(ctx context.Context, categoryID int64, from, before time.Time) (core.Money, error) {
	query := `
		SELECT SUM(t.amount)
		FROM transactions t
		LEFT JOIN transactions partner ON partner.id = t.transfer_transaction_id
		LEFT JOIN accounts partner_acc ON partner_acc.id = partner.account_id
		WHERE t.category_id = ?
		  AND t.date < ?
		  AND (t.transfer_transaction_id IS NULL OR partner_acc.off_budget = 1)`
	args := []any{categoryID, before.Format(core.DateLayout)}
	if !from.IsZero() {
		query += " AND t.date >= ?"
		args = append(args, from.Format(core.DateLayout))
	}

	var total sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("category activity: %w", err)
	}
	return core.Money(total.Int64), nil
}

func collectAccountSums(rows *sql.Rows) (map[int64]core.Money, error) {
	defer rows.Close()
	out := make(map[int64]core.Money)
	for rows.Next() {
		var (
			accountID int64
			sum       int64
		)
		if err := rows.Scan(&accountID, &sum); err != nil {
			return nil, fmt.Errorf("scan account sum: %w", err)
		}
		out[accountID] = core.Money(sum)
	}
	return out, rows.Err()
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		categoryID sql.NullInt64
		date       string
		payeeID    sql.NullInt64
		amount     int64
		importID   sql.NullString
		transferID sql.NullInt64
		createdAt  string
	)
	err := row.Scan(&t.ID, &t.AccountID, &categoryID, &date, &payeeID, &amount,
		&t.RawPayee, &t.Memo, &importID, &transferID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.CategoryID = categoryID.Int64
	t.PayeeID = payeeID.Int64
	t.Amount = core.Money(amount)
	t.ImportID = importID.String
	t.TransferID = transferID.Int64
	t.Date, err = time.Parse(core.DateLayout, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date: %w", err)
	}
	t.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		// rows created by SQLite's own default use datetime('now') format
		t.CreatedAt, err = time.Parse("2006-01-02 15:04:05", createdAt)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("parse created_at: %w", err)
		}
	}
	return t, nil
}
