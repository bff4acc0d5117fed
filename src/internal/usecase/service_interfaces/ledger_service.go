package service_interfaces

import (
	"context"

	"github.com/codexac/coin-ledger/src/internal/domain"
)

type LedgerService interface {
	Transfer(ctx context.Context, cmd domain.TransferCommand) (domain.TransferResult, error)
	Mine(ctx context.Context, cmd domain.MineCommand) (domain.MineResult, error)
	OpenStake(ctx context.Context, cmd domain.OpenStakeCommand) (domain.StakeResult, error)
}

// StakeAccruer applies one accrual step to a single stake.
type StakeAccruer interface {
	AccrueStake(ctx context.Context, stakeID int64) (domain.StakeOutcome, error)
}
