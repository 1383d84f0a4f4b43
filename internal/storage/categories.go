package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sobres/internal/core"
)

func (r *SQLiteRepository) CreateGroup(ctx context.Context, g *core.CategoryGroup) error {
	if err := g.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO category_groups (name, sort_order, is_active)
		VALUES (?, ?, ?)`,
		g.Name, g.Order, boolToInt(g.IsActive))
	if err != nil {
		return fmt.Errorf("insert category group: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("group id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GroupByName(ctx context.Context, name string) (core.CategoryGroup, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, sort_order, is_active FROM category_groups WHERE name = ?`, name)
	return scanGroup(row)
}

func (r *SQLiteRepository) ActiveGroups(ctx context.Context) ([]core.CategoryGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, sort_order, is_active FROM category_groups
		WHERE is_active = 1 ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGroup(row rowScanner) (core.CategoryGroup, error) {
	var (
		g      core.CategoryGroup
		active int64
	)
	err := row.Scan(&g.ID, &g.Name, &g.Order, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CategoryGroup{}, core.ErrNotFound
	}
	if err != nil {
		return core.CategoryGroup{}, fmt.Errorf("scan group: %w", err)
	}
	g.IsActive = active != 0
	return g, nil
}

const categoryColumns = `id, name, group_id, sort_order, is_active, kind,
	card_account_id, goal_type, goal_amount, goal_target_date`

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	if c.Kind == "" {
		c.Kind = core.CategoryRegular
	}
	if c.GoalType == "" {
		c.GoalType = core.GoalNone
	}
	if err := c.Validate(); err != nil {
		return err
	}
	var targetDate sql.NullString
	if !c.GoalTargetDate.IsZero() {
		targetDate = sql.NullString{String: c.GoalTargetDate.Format(core.DateLayout), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (name, group_id, sort_order, is_active, kind,
			card_account_id, goal_type, goal_amount, goal_target_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.GroupID, c.Order, boolToInt(c.IsActive), string(c.Kind),
		nullableID(c.CardAccountID), string(c.GoalType), int64(c.GoalAmount), targetDate)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

func (r *SQLiteRepository) ActiveByGroup(ctx context.Context, groupID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE group_id = ? AND is_active = 1 ORDER BY sort_order, name`, groupID)
	if err != nil {
		return nil, fmt.Errorf("categories of group: %w", err)
	}
	return collectCategories(rows)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return collectCategories(rows)
}

func collectCategories(rows *sql.Rows) ([]core.Category, error) {
	defer rows.Close()
	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c          core.Category
		active     int64
		kind       string
		cardID     sql.NullInt64
		goalType   string
		goalAmount int64
		targetDate sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &c.GroupID, &c.Order, &active, &kind,
		&cardID, &goalType, &goalAmount, &targetDate)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	c.IsActive = active != 0
	c.Kind = core.CategoryKind(kind)
	c.CardAccountID = cardID.Int64
	c.GoalType = core.GoalType(goalType)
	c.GoalAmount = core.Money(goalAmount)
	if targetDate.Valid {
		d, err := time.Parse(core.DateLayout, targetDate.String)
		if err != nil {
			return core.Category{}, fmt.Errorf("parse goal target date: %w", err)
		}
		c.GoalTargetDate = d
	}
	return c, nil
}
