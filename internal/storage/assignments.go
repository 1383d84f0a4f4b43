package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sobres/internal/core"
)

func (r *SQLiteRepository) UpsertAssignment(ctx context.Context, categoryID int64, month time.Time, amount core.Money) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_assignments (category_id, month, amount)
		VALUES (?, ?, ?)
		ON CONFLICT (category_id, month) DO UPDATE SET amount = excluded.amount`,
		categoryID, month.Format(core.DateLayout), int64(amount))
	if err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AssignedInMonth(ctx context.Context, categoryID int64, month time.Time) (core.Money, error) {
	var amount sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT amount FROM budget_assignments WHERE category_id = ? AND month = ?`,
		categoryID, month.Format(core.DateLayout)).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("assigned in month: %w", err)
	}
	return core.Money(amount.Int64), nil
}

func (r *SQLiteRepository) AssignedThrough(ctx context.Context, categoryID int64, month time.Time) (core.Money, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(amount) FROM budget_assignments
		WHERE category_id = ? AND month <= ?`,
		categoryID, month.Format(core.DateLayout)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("assigned through: %w", err)
	}
	return core.Money(total.Int64), nil
}

func (r *SQLiteRepository) AssignedAllTime(ctx context.Context) (core.Money, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM budget_assignments`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("assigned all time: %w", err)
	}
	return core.Money(total.Int64), nil
}
