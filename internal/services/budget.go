package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sobres/internal/core"
	"sobres/internal/ledger"
)

// Budget is the aggregation engine: it computes the monthly budget view and
// owns assignment upserts. Every Summary call recomputes from raw rows;
// nothing is materialized, so the view can never drift from the ledger.
type Budget struct {
	categories   ledger.CategoryRepository
	assignments  ledger.AssignmentRepository
	transactions ledger.TransactionRepository
}

func NewBudget(store ledger.Store) *Budget {
	return &Budget{categories: store, assignments: store, transactions: store}
}

// UpsertAssignment sets the money moved into a category for a month,
// replacing any previous value for that (category, month). Returns the
// stored amount.
func (s *Budget) UpsertAssignment(ctx context.Context, categoryID int64, month time.Time, amount core.Money) (core.Money, error) {
	if month.IsZero() {
		return 0, core.ErrInvalidDate
	}
	if _, err := s.categories.GetCategory(ctx, categoryID); err != nil {
		return 0, fmt.Errorf("category %d: %w", categoryID, err)
	}
	normalized := core.MonthStart(month)
	if err := s.assignments.UpsertAssignment(ctx, categoryID, normalized, amount); err != nil {
		return 0, fmt.Errorf("upsert assignment: %w", err)
	}
	slog.InfoContext(ctx, "Budget assignment saved",
		"category_id", categoryID,
		"month", normalized.Format(core.DateLayout),
		"amount", int64(amount))
	return amount, nil
}

// Summary computes the budget view for the month containing target.
//
// Ready-to-assign is all-time: every peso ever recorded on on-budget liquid
// accounts minus every assignment ever made, future months included —
// assigning money to December removes it from today's pool. Per-category
// numbers are cumulative through the target month so unused envelope
// balance rolls over by construction.
func (s *Budget) Summary(ctx context.Context, target time.Time) (core.Summary, error) {
	monthStart := core.MonthStart(target)
	nextMonth := core.NextMonth(monthStart)

	liquid, err := s.transactions.SumLiquidOnBudget(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum liquid cash: %w", err)
	}
	assignedAllTime, err := s.assignments.AssignedAllTime(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum assignments: %w", err)
	}

	summary := core.Summary{
		Month:         monthStart,
		ReadyToAssign: liquid - assignedAllTime,
	}

	// Credit-card sub-ledger, all history up to the end of the target
	// month: what was purchased against envelopes versus what was already
	// paid onto the card.
	ccSpending, err := s.transactions.CardSpendingThrough(ctx, nextMonth)
	if err != nil {
		return core.Summary{}, fmt.Errorf("card spending: %w", err)
	}
	ccPayments, err := s.transactions.CardPaymentsThrough(ctx, nextMonth)
	if err != nil {
		return core.Summary{}, fmt.Errorf("card payments: %w", err)
	}

	groups, err := s.categories.ActiveGroups(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("list groups: %w", err)
	}

	for _, group := range groups {
		cats, err := s.categories.ActiveByGroup(ctx, group.ID)
		if err != nil {
			return core.Summary{}, fmt.Errorf("categories of group %d: %w", group.ID, err)
		}
		groupSummary := core.GroupSummary{
			GroupID:    group.ID,
			GroupName:  group.Name,
			Categories: make([]core.CategorySummary, 0, len(cats)),
		}

		for _, cat := range cats {
			row, err := s.categoryRow(ctx, cat, monthStart, nextMonth, ccSpending, ccPayments)
			if err != nil {
				return core.Summary{}, err
			}
			summary.Totals.Assigned += row.Assigned
			summary.Totals.Activity += row.Activity
			summary.Totals.Available += row.Available
			groupSummary.Categories = append(groupSummary.Categories, row)
		}
		summary.Groups = append(summary.Groups, groupSummary)
	}

	return summary, nil
}

func (s *Budget) categoryRow(ctx context.Context, cat core.Category, monthStart, nextMonth time.Time, ccSpending, ccPayments map[int64]core.Money) (core.CategorySummary, error) {
	assignedMonth, err := s.assignments.AssignedInMonth(ctx, cat.ID, monthStart)
	if err != nil {
		return core.CategorySummary{}, fmt.Errorf("assigned in month, category %d: %w", cat.ID, err)
	}
	assignedCumulative, err := s.assignments.AssignedThrough(ctx, cat.ID, monthStart)
	if err != nil {
		return core.CategorySummary{}, fmt.Errorf("assigned through, category %d: %w", cat.ID, err)
	}

	activityMonth, err := s.transactions.CategoryActivity(ctx, cat.ID, monthStart, nextMonth)
	if err != nil {
		return core.CategorySummary{}, fmt.Errorf("month activity, category %d: %w", cat.ID, err)
	}
	activityCumulative, err := s.transactions.CategoryActivity(ctx, cat.ID, time.Time{}, nextMonth)
	if err != nil {
		return core.CategorySummary{}, fmt.Errorf("cumulative activity, category %d: %w", cat.ID, err)
	}

	// The rollover: available is a running sum, not a month-isolated
	// delta, so whatever was not spent last month is still here.
	available := assignedCumulative + activityCumulative

	if cat.Kind == core.CategoryCardPayment {
		// A card-payment envelope does not budget forward; it tracks what
		// is owed on the card: purchases funded minus payments made.
		available = ccSpending[cat.CardAccountID] - ccPayments[cat.CardAccountID]

		paidThisMonth, err := s.transactions.CardPaymentsBetween(ctx, cat.CardAccountID, monthStart, nextMonth)
		if err != nil {
			return core.CategorySummary{}, fmt.Errorf("card payments in month, account %d: %w", cat.CardAccountID, err)
		}
		if paidThisMonth > 0 {
			activityMonth = -paidThisMonth
		}
	}

	return core.CategorySummary{
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Assigned:     assignedMonth,
		Activity:     activityMonth,
		Available:    available,
		Goal:         core.EvaluateGoal(cat, assignedMonth, available, monthStart),
	}, nil
}
