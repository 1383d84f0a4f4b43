package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Money is an exact amount in Chilean pesos. CLP has no minor unit, so a
// plain integer is enough; cumulative summation must never drift, which
// rules out floating point anywhere in the ledger.
type Money int64

var nonNumeric = regexp.MustCompile(`[^\d.,-]`)

// ParseAmount converts bank-style amount strings to Money.
// Accepts "$1.234.567", "1.234.567", "-12,345" and plain integers.
// Dots are thousands separators in CLP; a comma starts a (discarded)
// fractional part some banks emit anyway.
func ParseAmount(s string) (Money, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, "CLP", "")
	cleaned = nonNumeric.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	if i := strings.IndexByte(cleaned, ','); i >= 0 {
		cleaned = cleaned[:i]
	}
	if cleaned == "" || cleaned == "-" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	v, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Money(v), nil
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// String formats the amount with dots as thousands separators ("1.234.567"),
// the way Chilean statements print it.
func (m Money) String() string {
	neg := m < 0
	digits := strconv.FormatInt(int64(m.Abs()), 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte('.')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte('.')
		}
	}
	return b.String()
}
