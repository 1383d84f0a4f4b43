package core

import (
	"errors"
	"testing"
	"time"
)

func TestAccountLiquid(t *testing.T) {
	cases := []struct {
		typ    AccountType
		liquid bool
	}{
		{AccountChecking, true},
		{AccountSavings, true},
		{AccountCash, true},
		{AccountCreditCard, false},
		{AccountAsset, false},
		{AccountLoan, false},
	}
	for _, tc := range cases {
		if got := (Account{Type: tc.typ}).Liquid(); got != tc.liquid {
			t.Errorf("Liquid(%s) = %v, want %v", tc.typ, got, tc.liquid)
		}
	}
}

func TestAccountValidate(t *testing.T) {
	if err := (Account{Name: "Cuenta Corriente", Type: AccountChecking}).Validate(); err != nil {
		t.Errorf("valid account rejected: %v", err)
	}
	if err := (Account{Name: "  ", Type: AccountChecking}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("blank name: got %v, want ErrEmptyName", err)
	}
	if err := (Account{Name: "X", Type: "wallet"}).Validate(); !errors.Is(err, ErrInvalidType) {
		t.Errorf("unknown type: got %v, want ErrInvalidType", err)
	}
}

func TestCategoryValidate(t *testing.T) {
	tests := []struct {
		name    string
		cat     Category
		wantErr error
	}{
		{"no goal", Category{Name: "Supermercado", GroupID: 1}, nil},
		{"monthly goal", Category{Name: "Arriendo", GroupID: 1, GoalType: GoalMonthly, GoalAmount: 500000}, nil},
		{"target date goal", Category{Name: "Vacaciones", GroupID: 1, GoalType: GoalTargetDate, GoalAmount: 1000000, GoalTargetDate: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)}, nil},
		{"empty name", Category{GroupID: 1}, ErrEmptyName},
		{"missing group", Category{Name: "X"}, ErrMissingReference},
		{"monthly without amount", Category{Name: "X", GroupID: 1, GoalType: GoalMonthly}, ErrInvalidGoal},
		{"negative target balance", Category{Name: "X", GroupID: 1, GoalType: GoalTargetBalance, GoalAmount: -1}, ErrInvalidGoal},
		{"target date without date", Category{Name: "X", GroupID: 1, GoalType: GoalTargetDate, GoalAmount: 1000}, ErrInvalidGoal},
		{"unknown goal type", Category{Name: "X", GroupID: 1, GoalType: "weekly"}, ErrInvalidGoal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cat.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPayeeMatchMatches(t *testing.T) {
	rule := PayeeMatch{Pattern: "uber"}
	cases := []struct {
		raw  string
		want bool
	}{
		{"UBER *TRIP SANTIAGO", true},
		{"Pago Uber Eats", true},
		{"LIDER EXPRESS", false},
	}
	for _, tc := range cases {
		if got := rule.Matches(tc.raw); got != tc.want {
			t.Errorf("Matches(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestPayeeMatchValidate(t *testing.T) {
	if err := (PayeeMatch{Pattern: " ", PayeeID: 1}).Validate(); !errors.Is(err, ErrEmptyPattern) {
		t.Errorf("blank pattern: got %v", err)
	}
	if err := (PayeeMatch{Pattern: "lider"}).Validate(); !errors.Is(err, ErrMissingReference) {
		t.Errorf("missing payee: got %v", err)
	}
}

func TestTransactionDTOValidate(t *testing.T) {
	valid := TransactionDTO{
		Date:   time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC),
		Payee:  "LIDER",
		Amount: -12500,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid dto rejected: %v", err)
	}

	zeroDate := valid
	zeroDate.Date = time.Time{}
	if err := zeroDate.Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("zero date: got %v", err)
	}

	blankPayee := valid
	blankPayee.Payee = "   "
	if err := blankPayee.Validate(); !errors.Is(err, ErrEmptyPayee) {
		t.Errorf("blank payee: got %v", err)
	}

	zeroAmount := valid
	zeroAmount.Amount = 0
	if err := zeroAmount.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: got %v", err)
	}
}

func TestNormalizePayee(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"  UBER   EATS  SANTIAGO ", "uber eats santiago"},
		{"Lider\tExpress", "lider express"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizePayee(tc.in); got != tc.out {
			t.Errorf("NormalizePayee(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestTransactionIsTransfer(t *testing.T) {
	if (Transaction{}).IsTransfer() {
		t.Error("unlinked transaction reported as transfer")
	}
	if !(Transaction{TransferID: 7}).IsTransfer() {
		t.Error("linked transaction not reported as transfer")
	}
}
