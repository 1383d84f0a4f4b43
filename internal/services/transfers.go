package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sobres/internal/core"
	"sobres/internal/ledger"
)

// Transfers pairs transactions into transfers and creates both legs of new
// ones. Every mutation here touches two rows and goes through a single
// atomic repository operation.
type Transfers struct {
	accounts     ledger.AccountRepository
	transactions ledger.TransactionRepository
	events       EventPublisher
}

func NewTransfers(store ledger.Store, events EventPublisher) *Transfers {
	return &Transfers{accounts: store, transactions: store, events: events}
}

// Link pairs two existing transactions as one economic transfer. When both
// accounts are on-budget the movement is budget-neutral and both categories
// are cleared; when either side is off-budget the categories stay, because
// crossing the budget boundary is real budget activity.
func (s *Transfers) Link(ctx context.Context, idA, idB int64) error {
	if idA == idB {
		return core.ErrSameTransaction
	}
	txA, err := s.transactions.GetTransaction(ctx, idA)
	if err != nil {
		return fmt.Errorf("transaction %d: %w", idA, err)
	}
	txB, err := s.transactions.GetTransaction(ctx, idB)
	if err != nil {
		return fmt.Errorf("transaction %d: %w", idB, err)
	}

	accA, err := s.accounts.GetAccount(ctx, txA.AccountID)
	if err != nil {
		return fmt.Errorf("account %d: %w", txA.AccountID, err)
	}
	accB, err := s.accounts.GetAccount(ctx, txB.AccountID)
	if err != nil {
		return fmt.Errorf("account %d: %w", txB.AccountID, err)
	}

	pureInternal := !accA.OffBudget && !accB.OffBudget
	if err := s.transactions.LinkPair(ctx, idA, idB, pureInternal); err != nil {
		return fmt.Errorf("link pair: %w", err)
	}

	slog.InfoContext(ctx, "Transfer linked",
		"id_a", idA, "id_b", idB, "categories_cleared", pureInternal)
	return nil
}

// Unlink breaks the pairing on both sides. Categories are left as they are;
// re-categorizing after an unlink is an explicit user action.
func (s *Transfers) Unlink(ctx context.Context, id int64) error {
	if _, err := s.transactions.GetTransaction(ctx, id); err != nil {
		return fmt.Errorf("transaction %d: %w", id, err)
	}
	if err := s.transactions.UnlinkPair(ctx, id); err != nil {
		return fmt.Errorf("unlink pair: %w", err)
	}
	slog.InfoContext(ctx, "Transfer unlinked", "id", id)
	return nil
}

// CreateTransferRequest describes a new two-leg transfer.
type CreateTransferRequest struct {
	SourceAccountID      int64
	DestinationAccountID int64
	Amount               core.Money // positive; the sign of each leg is derived
	Date                 time.Time
	Memo                 string
	CategoryID           int64 // optional envelope for money leaving the budget
}

// Create writes both legs and links them. The category lands on the
// outgoing leg only when money leaves the budget (on-budget source,
// off-budget destination); a pure internal transfer carries none.
func (s *Transfers) Create(ctx context.Context, req CreateTransferRequest) (core.Transaction, core.Transaction, error) {
	var none core.Transaction
	if req.SourceAccountID == req.DestinationAccountID {
		return none, none, core.ErrSameAccount
	}
	if req.Amount == 0 {
		return none, none, core.ErrInvalidAmount
	}
	if req.Date.IsZero() {
		return none, none, core.ErrInvalidDate
	}

	source, err := s.accounts.GetAccount(ctx, req.SourceAccountID)
	if err != nil {
		return none, none, fmt.Errorf("source account: %w", err)
	}
	dest, err := s.accounts.GetAccount(ctx, req.DestinationAccountID)
	if err != nil {
		return none, none, fmt.Errorf("destination account: %w", err)
	}

	var categoryID int64
	if dest.OffBudget && !source.OffBudget {
		categoryID = req.CategoryID
	}

	amount := req.Amount.Abs()
	out := core.Transaction{
		AccountID:  source.ID,
		CategoryID: categoryID,
		Date:       core.Day(req.Date),
		Amount:     -amount,
		RawPayee:   fmt.Sprintf("Transferencia a %s", dest.Name),
		Memo:       req.Memo,
	}
	in := core.Transaction{
		AccountID: dest.ID,
		Date:      core.Day(req.Date),
		Amount:    amount,
		RawPayee:  fmt.Sprintf("Transferencia de %s", source.Name),
		Memo:      req.Memo,
	}

	if err := s.transactions.CreateTransferPair(ctx, &out, &in); err != nil {
		return none, none, fmt.Errorf("create transfer pair: %w", err)
	}

	slog.InfoContext(ctx, "Transfer created",
		"out_id", out.ID, "in_id", in.ID,
		"source", source.Name, "destination", dest.Name,
		"amount", int64(amount), "category_id", categoryID)

	if s.events != nil {
		s.publishBoth(ctx, out, in)
	}
	return out, in, nil
}

func (s *Transfers) publishBoth(ctx context.Context, legs ...core.Transaction) {
	for _, leg := range legs {
		if err := s.events.PublishTransactionSync(ctx, leg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transfer leg", "id", leg.ID, "error", err)
		}
	}
}
