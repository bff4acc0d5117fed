package events

import (
	"context"
	"errors"

	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/domain"
)

// MultiPublisher hands every entry to each publisher in order and joins the
// failures.
type MultiPublisher struct {
	publishers []repo_interfaces.EventPublisher
}

func NewMultiPublisher(publishers ...repo_interfaces.EventPublisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

func (m *MultiPublisher) PublishEntry(ctx context.Context, entry domain.LedgerEntry) error {
	var errs []error
	for _, publisher := range m.publishers {
		if err := publisher.PublishEntry(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
