package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sobres/internal/core"
)

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (name, type, off_budget, identifier, payment_category_id)
		VALUES (?, ?, ?, ?, ?)`,
		a.Name, string(a.Type), boolToInt(a.OffBudget), a.Identifier, nullableID(a.PaymentCategoryID))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, type, off_budget, identifier, payment_category_id
		FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, type, off_budget, identifier, payment_category_id
		FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SetPaymentCategory(ctx context.Context, accountID, categoryID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET payment_category_id = ? WHERE id = ?`,
		nullableID(categoryID), accountID)
	if err != nil {
		return fmt.Errorf("set payment category: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a         core.Account
		accType   string
		offBudget int64
		payCat    sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.Name, &accType, &offBudget, &a.Identifier, &payCat)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.Type = core.AccountType(accType)
	a.OffBudget = offBudget != 0
	a.PaymentCategoryID = payCat.Int64
	return a, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// requireRow converts a zero-row UPDATE into core.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
