package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sobres/internal/core"
)

func (r *SQLiteRepository) CreatePayee(ctx context.Context, p *core.Payee) error {
	if err := p.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO payees (name, default_category_id) VALUES (?, ?)`,
		p.Name, nullableID(p.DefaultCategoryID))
	if err != nil {
		return fmt.Errorf("insert payee: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("payee id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetPayee(ctx context.Context, id int64) (core.Payee, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, default_category_id FROM payees WHERE id = ?`, id)
	return scanPayee(row)
}

func (r *SQLiteRepository) ListPayees(ctx context.Context) ([]core.Payee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, default_category_id FROM payees ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list payees: %w", err)
	}
	defer rows.Close()

	var out []core.Payee
	for rows.Next() {
		p, err := scanPayee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayee(row rowScanner) (core.Payee, error) {
	var (
		p      core.Payee
		defCat sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Name, &defCat)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payee{}, core.ErrNotFound
	}
	if err != nil {
		return core.Payee{}, fmt.Errorf("scan payee: %w", err)
	}
	p.DefaultCategoryID = defCat.Int64
	return p, nil
}

func (r *SQLiteRepository) CreateRule(ctx context.Context, m *core.PayeeMatch) error {
	if err := m.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO payee_matches (payee_id, pattern, priority) VALUES (?, ?, ?)`,
		m.PayeeID, m.Pattern, m.Priority)
	if err != nil {
		return fmt.Errorf("insert payee rule: %w", err)
	}
	m.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("rule id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListRules(ctx context.Context) ([]core.PayeeMatch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, payee_id, pattern, priority FROM payee_matches
		ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("list payee rules: %w", err)
	}
	defer rows.Close()

	var out []core.PayeeMatch
	for rows.Next() {
		var m core.PayeeMatch
		if err := rows.Scan(&m.ID, &m.PayeeID, &m.Pattern, &m.Priority); err != nil {
			return nil, fmt.Errorf("scan payee rule: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
