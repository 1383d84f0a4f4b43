package services

import (
	"context"

	"sobres/internal/core"
)

// EventPublisher receives ledger events for asynchronous export. Publishing
// is best effort: the write already succeeded locally, so a publish failure
// is logged and swallowed, never surfaced to the caller.
type EventPublisher interface {
	PublishTransactionSync(ctx context.Context, tx core.Transaction) error
}
