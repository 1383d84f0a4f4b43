package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sobres/internal/cache"
	"sobres/internal/core"
	"sobres/internal/ledger"
)

// rulesTTL bounds how stale the cached payee rule set may get. Rule edits
// through the API invalidate it immediately; the TTL covers edits made
// directly against the database.
const rulesTTL = time.Minute

// Ingestor turns TransactionDTOs from any source into stored transactions,
// handling duplicate detection, account routing and payee enrichment.
type Ingestor struct {
	accounts     ledger.AccountRepository
	payees       ledger.PayeeRepository
	transactions ledger.TransactionRepository
	rules        *cache.Value[[]core.PayeeMatch]
	events       EventPublisher
}

func NewIngestor(store ledger.Store, events EventPublisher) *Ingestor {
	return &Ingestor{
		accounts:     store,
		payees:       store,
		transactions: store,
		rules:        cache.NewValue[[]core.PayeeMatch](rulesTTL),
		events:       events,
	}
}

// InvalidateRules drops the cached rule set after a rule mutation.
func (s *Ingestor) InvalidateRules() { s.rules.Invalidate() }

// Ingest stores dto as a transaction on defaultAccountID (or on the account
// matched by the dto's identifier hint) and reports whether a new row was
// created. Duplicates return the existing transaction with created=false.
func (s *Ingestor) Ingest(ctx context.Context, defaultAccountID int64, dto core.TransactionDTO) (core.Transaction, bool, error) {
	if err := dto.Validate(); err != nil {
		return core.Transaction{}, false, err
	}

	// Strong dedup: a known import id wins before anything else runs.
	if dto.ImportID != "" {
		existing, err := s.transactions.FindByImportID(ctx, dto.ImportID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return core.Transaction{}, false, fmt.Errorf("lookup import id: %w", err)
		}
	}

	accountID, err := s.routeAccount(ctx, defaultAccountID, dto.AccountIdentifier)
	if err != nil {
		return core.Transaction{}, false, err
	}

	// Content dedup: same account, date and amount with equivalent payee
	// text means the transaction already arrived through another channel.
	candidates, err := s.transactions.FindByContent(ctx, accountID, dto.Date, dto.Amount)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("content dedup scan: %w", err)
	}
	wanted := core.NormalizePayee(dto.Payee)
	for _, cand := range candidates {
		if core.NormalizePayee(cand.RawPayee) != wanted {
			continue
		}
		if cand.ImportID == "" && dto.ImportID != "" {
			// Backfill so the next arrival short-circuits on strong dedup.
			if err := s.transactions.SetImportID(ctx, cand.ID, dto.ImportID); err != nil {
				return core.Transaction{}, false, fmt.Errorf("backfill import id: %w", err)
			}
			cand.ImportID = dto.ImportID
		}
		slog.DebugContext(ctx, "Duplicate transaction skipped",
			"account_id", accountID, "raw_payee", dto.Payee, "amount", int64(dto.Amount))
		return cand, false, nil
	}

	payee, err := s.matchPayee(ctx, dto.Payee)
	if err != nil {
		return core.Transaction{}, false, err
	}

	tx := core.Transaction{
		AccountID: accountID,
		Date:      core.Day(dto.Date),
		Amount:    dto.Amount,
		RawPayee:  dto.Payee,
		Memo:      dto.Memo,
		ImportID:  dto.ImportID,
	}
	if payee != nil {
		tx.PayeeID = payee.ID
		tx.CategoryID = payee.DefaultCategoryID
	}
	if err := s.transactions.CreateTransaction(ctx, &tx); err != nil {
		return core.Transaction{}, false, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction ingested",
		"id", tx.ID,
		"account_id", tx.AccountID,
		"amount", int64(tx.Amount),
		"raw_payee", tx.RawPayee,
		"payee_id", tx.PayeeID,
		"category_id", tx.CategoryID)

	s.publish(ctx, tx)
	return tx, true, nil
}

// BatchReport summarizes one ingestion run.
type BatchReport struct {
	Imported   int
	Duplicated int
	Failed     int
}

// IngestBatch feeds every dto through Ingest independently: one bad row is
// logged and counted, never aborting the rest of the batch.
func (s *Ingestor) IngestBatch(ctx context.Context, defaultAccountID int64, dtos []core.TransactionDTO) (BatchReport, error) {
	var report BatchReport
	for _, dto := range dtos {
		_, created, err := s.Ingest(ctx, defaultAccountID, dto)
		switch {
		case err != nil:
			report.Failed++
			slog.WarnContext(ctx, "Skipping row that failed to ingest",
				"error", err, "raw_payee", dto.Payee, "date", dto.Date.Format(core.DateLayout))
		case created:
			report.Imported++
		default:
			report.Duplicated++
		}
	}
	return report, ctx.Err()
}

// routeAccount overrides the default account when the dto carries an
// identifier hint whose suffix matches a configured account identifier
// (typically the card's last four digits).
func (s *Ingestor) routeAccount(ctx context.Context, defaultAccountID int64, hint string) (int64, error) {
	if strings.TrimSpace(hint) == "" {
		return defaultAccountID, nil
	}
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list accounts for routing: %w", err)
	}
	for _, acc := range accounts {
		if acc.Identifier != "" && strings.HasSuffix(hint, acc.Identifier) {
			return acc.ID, nil
		}
	}
	return defaultAccountID, nil
}

// matchPayee applies the ordered rule set; the first pattern contained in
// the raw text wins.
func (s *Ingestor) matchPayee(ctx context.Context, raw string) (*core.Payee, error) {
	rules, ok := s.rules.Get()
	if !ok {
		var err error
		rules, err = s.payees.ListRules(ctx)
		if err != nil {
			return nil, fmt.Errorf("load payee rules: %w", err)
		}
		s.rules.Set(rules)
	}
	for _, rule := range rules {
		if !rule.Matches(raw) {
			continue
		}
		payee, err := s.payees.GetPayee(ctx, rule.PayeeID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve payee %d: %w", rule.PayeeID, err)
		}
		return &payee, nil
	}
	return nil, nil
}

func (s *Ingestor) publish(ctx context.Context, tx core.Transaction) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionSync(ctx, tx); err != nil {
		// The transaction is already stored; export catches up later.
		slog.ErrorContext(ctx, "Failed to publish transaction sync message",
			"id", tx.ID, "error", err)
	}
}
