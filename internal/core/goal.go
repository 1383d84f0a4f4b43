package core

import (
	"fmt"
	"time"
)

// goalEpsilon absorbs integer-division rounding when checking whether this
// month's assignment covers the suggested quota.
const goalEpsilon Money = 1

// EvaluateGoal maps a category's goal configuration plus its cumulative
// state for targetMonth to a status record. Pure: no clock, no store.
//
// assignedThisMonth is the assignment for targetMonth only; available is the
// cumulative envelope balance (rollover included).
func EvaluateGoal(cat Category, assignedThisMonth, available Money, targetMonth time.Time) GoalStatus {
	status := GoalStatus{
		Type:   cat.GoalType,
		Target: cat.GoalAmount,
	}
	if status.Type == "" {
		status.Type = GoalNone
	}

	switch cat.GoalType {
	case GoalMonthly:
		status.Required = maxMoney(0, cat.GoalAmount-assignedThisMonth)
		status.IsMet = assignedThisMonth >= cat.GoalAmount
		status.Percentage = percentOf(assignedThisMonth, cat.GoalAmount)
		if status.IsMet {
			status.Message = "Meta mensual cumplida"
		} else {
			status.Message = fmt.Sprintf("Faltan $%s", status.Required)
		}

	case GoalTargetBalance:
		status.Required = maxMoney(0, cat.GoalAmount-available)
		status.IsMet = available >= cat.GoalAmount
		status.Percentage = percentOf(available, cat.GoalAmount)
		if status.IsMet {
			status.Message = "Saldo objetivo alcanzado"
		} else {
			status.Message = fmt.Sprintf("Falta juntar $%s", status.Required)
		}

	case GoalTargetDate:
		if cat.GoalTargetDate.IsZero() {
			break
		}
		if available >= cat.GoalAmount {
			status.IsMet = true
			status.Percentage = 100
			status.Message = "¡Meta lograda!"
			break
		}

		monthsRemaining := MonthsBetween(MonthStart(targetMonth), cat.GoalTargetDate)
		if monthsRemaining < 1 {
			monthsRemaining = 1
		}

		// What was missing before this month's assignment went in; the
		// quota spreads that over the months left.
		balanceBefore := available - assignedThisMonth
		totalMissing := maxMoney(0, cat.GoalAmount-balanceBefore)
		suggested := totalMissing / Money(monthsRemaining)

		status.IsMet = assignedThisMonth >= suggested-goalEpsilon
		status.Required = maxMoney(0, suggested-assignedThisMonth)
		// Percentage tracks the cumulative balance, not the monthly quota.
		status.Percentage = percentOf(available, cat.GoalAmount)
		if status.IsMet {
			status.Message = "Vas bien este mes"
		} else {
			status.Message = fmt.Sprintf("Aporta $%s este mes", suggested)
		}
	}

	return status
}

func percentOf(part, total Money) int {
	if total <= 0 {
		return 0
	}
	pct := int(part * 100 / total)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func maxMoney(a, b Money) Money {
	if a > b {
		return a
	}
	return b
}
