package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sobres/internal/core"
	"sobres/internal/ledger"
)

// cardPaymentGroupName groups every card-payment envelope; created on first
// use.
const cardPaymentGroupName = "Pagos de Tarjetas de Crédito"

// Accounts owns account creation (including card-payment envelope
// provisioning) and balance reconciliation.
type Accounts struct {
	accounts     ledger.AccountRepository
	categories   ledger.CategoryRepository
	transactions ledger.TransactionRepository
}

func NewAccounts(store ledger.Store) *Accounts {
	return &Accounts{accounts: store, categories: store, transactions: store}
}

// Create persists the account. Credit cards additionally get their
// card-payment envelope provisioned right here, as an explicit step, so a
// provisioning failure is visible to the caller instead of being lost in an
// event hook.
func (s *Accounts) Create(ctx context.Context, acc *core.Account) error {
	if err := acc.Validate(); err != nil {
		return err
	}
	if err := s.accounts.CreateAccount(ctx, acc); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	if acc.Type != core.AccountCreditCard {
		return nil
	}
	if err := s.provisionPaymentCategory(ctx, acc); err != nil {
		return fmt.Errorf("provision payment category: %w", err)
	}
	return nil
}

func (s *Accounts) provisionPaymentCategory(ctx context.Context, acc *core.Account) error {
	group, err := s.categories.GroupByName(ctx, cardPaymentGroupName)
	if errors.Is(err, core.ErrNotFound) {
		group = core.CategoryGroup{Name: cardPaymentGroupName, Order: 0, IsActive: true}
		if err := s.categories.CreateGroup(ctx, &group); err != nil {
			return fmt.Errorf("create group: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("lookup group: %w", err)
	}

	cat := core.Category{
		Name:          fmt.Sprintf("Pago: %s", acc.Name),
		GroupID:       group.ID,
		IsActive:      true,
		Kind:          core.CategoryCardPayment,
		CardAccountID: acc.ID,
		GoalType:      core.GoalNone,
	}
	if err := s.categories.CreateCategory(ctx, &cat); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	if err := s.accounts.SetPaymentCategory(ctx, acc.ID, cat.ID); err != nil {
		return fmt.Errorf("link payment category: %w", err)
	}
	acc.PaymentCategoryID = cat.ID

	slog.InfoContext(ctx, "Card payment envelope provisioned",
		"account_id", acc.ID, "category_id", cat.ID, "category", cat.Name)
	return nil
}

// Balance returns the account's current balance, which is by definition the
// sum of its transactions — no balance is ever stored.
func (s *Accounts) Balance(ctx context.Context, accountID int64) (core.Money, error) {
	if _, err := s.accounts.GetAccount(ctx, accountID); err != nil {
		return 0, fmt.Errorf("account %d: %w", accountID, err)
	}
	return s.transactions.SumByAccount(ctx, accountID)
}

// Reconcile adjusts the account to targetBalance by writing one adjustment
// transaction for the difference. A second call at the same target sees a
// zero diff and writes nothing.
func (s *Accounts) Reconcile(ctx context.Context, accountID int64, targetBalance core.Money) (core.Money, error) {
	current, err := s.Balance(ctx, accountID)
	if err != nil {
		return 0, err
	}
	diff := targetBalance - current
	if diff == 0 {
		return 0, nil
	}

	adj := core.Transaction{
		AccountID: accountID,
		Date:      core.Day(time.Now().UTC()),
		Amount:    diff,
		RawPayee:  "Ajuste Manual de Saldo",
		Memo:      "Reconciliación automática",
	}
	if err := s.transactions.CreateTransaction(ctx, &adj); err != nil {
		return 0, fmt.Errorf("create adjustment: %w", err)
	}

	slog.InfoContext(ctx, "Account reconciled",
		"account_id", accountID,
		"adjustment", int64(diff),
		"new_balance", int64(targetBalance))
	return diff, nil
}
