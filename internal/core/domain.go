package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCreditCard AccountType = "credit_card"
	AccountCash       AccountType = "cash"
	AccountAsset      AccountType = "asset"
	AccountLoan       AccountType = "loan"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyPayee       = errors.New("empty payee text")
	ErrInvalidType      = errors.New("invalid account type")
	ErrSameTransaction  = errors.New("cannot link a transaction with itself")
	ErrSameAccount      = errors.New("source and destination accounts must differ")
	ErrAlreadyLinked    = errors.New("transaction is already part of a transfer")
	ErrInvalidGoal      = errors.New("invalid goal configuration")
	ErrEmptyPattern     = errors.New("empty match pattern")
	ErrMissingReference = errors.New("missing referenced id")
)

// Account is a bank account, cash pocket or credit card. It never stores a
// balance: the balance is always the sum of its transactions.
type Account struct {
	ID        int64
	Name      string
	Type      AccountType
	OffBudget bool

	// Identifier is an optional routing token, typically the last four
	// digits of the card, matched against import hints.
	Identifier string

	// PaymentCategoryID links a credit card to its "amount owed" envelope.
	// Zero for every other account type.
	PaymentCategoryID int64
}

// Liquid reports whether the account's balance counts toward ready-to-assign.
func (a Account) Liquid() bool {
	switch a.Type {
	case AccountChecking, AccountSavings, AccountCash:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	switch a.Type {
	case AccountChecking, AccountSavings, AccountCreditCard, AccountCash, AccountAsset, AccountLoan:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidType, a.Type)
}

// CategoryGroup is a display grouping of envelopes. Order breaks ties by
// name; soft deletes flip IsActive.
type CategoryGroup struct {
	ID       int64
	Name     string
	Order    int
	IsActive bool
}

func (g CategoryGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

type GoalType string

const (
	GoalNone          GoalType = "none"
	GoalMonthly       GoalType = "monthly"
	GoalTargetDate    GoalType = "target_date"
	GoalTargetBalance GoalType = "target_balance"
)

type CategoryKind string

const (
	// CategoryRegular is an ordinary envelope.
	CategoryRegular CategoryKind = "regular"
	// CategoryCardPayment is the synthetic envelope tracking what is owed
	// on one credit card. Its available balance is computed from the card
	// sub-ledger, not from assignments and activity.
	CategoryCardPayment CategoryKind = "card_payment"
)

// Category is an envelope money gets assigned into.
type Category struct {
	ID       int64
	Name     string
	GroupID  int64
	Order    int
	IsActive bool

	Kind CategoryKind
	// CardAccountID is set when Kind is CategoryCardPayment.
	CardAccountID int64

	GoalType       GoalType
	GoalAmount     Money
	GoalTargetDate time.Time
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.GroupID == 0 {
		return fmt.Errorf("%w: category group", ErrMissingReference)
	}
	switch c.GoalType {
	case "", GoalNone:
	case GoalMonthly, GoalTargetBalance:
		if c.GoalAmount <= 0 {
			return fmt.Errorf("%w: goal amount must be positive", ErrInvalidGoal)
		}
	case GoalTargetDate:
		if c.GoalAmount <= 0 {
			return fmt.Errorf("%w: goal amount must be positive", ErrInvalidGoal)
		}
		if c.GoalTargetDate.IsZero() {
			return fmt.Errorf("%w: target date required", ErrInvalidGoal)
		}
	default:
		return fmt.Errorf("%w: unknown goal type %q", ErrInvalidGoal, c.GoalType)
	}
	return nil
}

// Payee is a normalized merchant ("Lider", "Uber", "Copec").
type Payee struct {
	ID   int64
	Name string
	// DefaultCategoryID auto-categorizes transactions matched to this payee.
	DefaultCategoryID int64
}

func (p Payee) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// PayeeMatch maps dirty bank text onto a payee. Rules are scanned in
// ascending Priority (ties by id) and the first substring hit wins.
type PayeeMatch struct {
	ID       int64
	PayeeID  int64
	Pattern  string
	Priority int
}

func (m PayeeMatch) Validate() error {
	if strings.TrimSpace(m.Pattern) == "" {
		return ErrEmptyPattern
	}
	if m.PayeeID == 0 {
		return fmt.Errorf("%w: payee", ErrMissingReference)
	}
	return nil
}

// Matches reports whether the rule hits the raw transaction text.
// Matching is a case-insensitive substring test.
func (m PayeeMatch) Matches(raw string) bool {
	return strings.Contains(strings.ToLower(raw), strings.ToLower(m.Pattern))
}

// BudgetAssignment moves money into an envelope for one month. Negative
// amounts move money back out. Unique per (category, month); month is
// always the first of the month.
type BudgetAssignment struct {
	CategoryID int64
	Month      time.Time
	Amount     Money
}

// Transaction is one movement of money. Expenses are negative, income
// positive. A zero CategoryID means it still needs classification, or that
// it is a pure transfer leg.
type Transaction struct {
	ID         int64
	AccountID  int64
	CategoryID int64
	Date       time.Time
	PayeeID    int64
	Amount     Money
	RawPayee   string
	Memo       string

	// ImportID is a stable dedup key set by importers. Unique when present.
	ImportID string

	// TransferID points at the partner leg when this transaction is half of
	// a transfer. Pairing is symmetric: both legs point at each other or
	// neither does.
	TransferID int64

	CreatedAt time.Time
}

func (t Transaction) Validate() error {
	if t.AccountID == 0 {
		return fmt.Errorf("%w: account", ErrMissingReference)
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.RawPayee) == "" {
		return ErrEmptyPayee
	}
	return nil
}

// IsTransfer reports whether this transaction is a linked transfer leg.
func (t Transaction) IsTransfer() bool { return t.TransferID != 0 }

// TransactionDTO is the normalized shape every import source (bank email
// parser, CSV mapping, manual entry) produces before ingestion.
type TransactionDTO struct {
	Date   time.Time
	Payee  string // raw bank text, kept verbatim on the transaction
	Amount Money
	Memo   string

	// ImportID is the source's stable dedup key, when it has one.
	ImportID string

	// AccountIdentifier carries the card/account hint found in the source
	// (e.g. last four digits) for routing when one mailbox feeds several
	// accounts.
	AccountIdentifier string
}

func (d TransactionDTO) Validate() error {
	if d.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(d.Payee) == "" {
		return ErrEmptyPayee
	}
	if d.Amount == 0 {
		return fmt.Errorf("%w: zero amount", ErrInvalidAmount)
	}
	return nil
}

// NormalizePayee collapses whitespace and lowercases raw payee text for
// content-based dedup comparisons.
func NormalizePayee(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
