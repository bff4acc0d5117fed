package repo_interfaces

import (
	"context"

	"github.com/codexac/coin-ledger/src/internal/domain"
)

// EventPublisher receives ledger entries once their atomic scope has committed.
type EventPublisher interface {
	PublishEntry(ctx context.Context, entry domain.LedgerEntry) error
}
