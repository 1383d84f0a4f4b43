package core

import "time"

// DateLayout is the ISO format used everywhere dates cross a boundary
// (storage, HTTP, import files).
const DateLayout = "2006-01-02"

// ParseDate parses an ISO date into a UTC-midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Day truncates t to UTC midnight. Transactions carry dates, not instants.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart normalizes t to the first day of its month. Budget assignments
// and summary queries are always keyed by this.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextMonth returns the first day of the month after t's month. It is the
// exclusive upper bound for every cumulative query.
func NextMonth(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0)
}

// MonthsBetween counts calendar months from the month of a to the month of
// b, inclusive of both. Used for target-date goal projection.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month()) + 1
}
