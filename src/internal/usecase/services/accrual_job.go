package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/logger"
	"github.com/codexac/coin-ledger/src/internal/usecase/service_interfaces"
	"golang.org/x/sync/errgroup"
)

// StakingAccrualJob walks every active stake once per run. Each stake is
// processed in its own atomic step with its own timeout; a failing stake is
// logged and counted without stopping the run.
type StakingAccrualJob struct {
	store        repo_interfaces.LedgerStore
	accruer      service_interfaces.StakeAccruer
	stakeTimeout time.Duration
	workers      int
}

func NewStakingAccrualJob(
	store repo_interfaces.LedgerStore,
	accruer service_interfaces.StakeAccruer,
	stakeTimeout time.Duration,
	workers int,
) *StakingAccrualJob {
	if workers <= 0 {
		workers = 1
	}
	return &StakingAccrualJob{
		store:        store,
		accruer:      accruer,
		stakeTimeout: stakeTimeout,
		workers:      workers,
	}
}

func (j *StakingAccrualJob) RunAccrual(ctx context.Context) (domain.AccrualReport, error) {
	logger.Info("staking accrual job started", nil)

	ids, err := j.store.ListActiveStakeIDs(ctx)
	if err != nil {
		logger.Error("staking accrual job list stakes failed", err, nil)
		return domain.AccrualReport{}, fmt.Errorf("%w: list active stakes: %v", domain.ErrStoreUnavailable, err)
	}

	var (
		mu     sync.Mutex
		report domain.AccrualReport
		g      errgroup.Group
	)
	g.SetLimit(j.workers)

	for _, id := range ids {
		stakeID := id
		g.Go(func() error {
			outcome, err := j.accrueOne(ctx, stakeID)

			mu.Lock()
			defer mu.Unlock()
			report.Processed++
			if err != nil {
				report.Failed++
				logger.Error("staking accrual job stake failed", err, logger.Fields{
					"stakeId": stakeID,
				})
				return nil
			}
			switch outcome {
			case domain.StakeOutcomeAccrued:
				report.Accrued++
			case domain.StakeOutcomeClosed:
				report.Closed++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("staking accrual job finished", logger.Fields{
		"processed": report.Processed,
		"accrued":   report.Accrued,
		"closed":    report.Closed,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	})

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("staking accrual interrupted: %w", err)
	}
	return report, nil
}

func (j *StakingAccrualJob) accrueOne(ctx context.Context, stakeID int64) (domain.StakeOutcome, error) {
	stakeCtx := ctx
	if j.stakeTimeout > 0 {
		var cancel context.CancelFunc
		stakeCtx, cancel = context.WithTimeout(ctx, j.stakeTimeout)
		defer cancel()
	}
	return j.accruer.AccrueStake(stakeCtx, stakeID)
}

// AccrualScheduler triggers the accrual job at every local midnight.
type AccrualScheduler struct {
	job      *StakingAccrualJob
	location *time.Location
	now      func() time.Time
}

func NewAccrualScheduler(job *StakingAccrualJob, location *time.Location) *AccrualScheduler {
	if location == nil {
		location = time.Local
	}
	return &AccrualScheduler{
		job:      job,
		location: location,
		now:      time.Now,
	}
}

// NextRun returns the first local midnight strictly after now.
func (s *AccrualScheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, s.location)
}

// Run blocks until ctx is cancelled.
func (s *AccrualScheduler) Run(ctx context.Context) {
	for {
		next := s.NextRun(s.now())
		logger.Info("staking accrual scheduled", logger.Fields{"nextRun": next})

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := s.job.RunAccrual(ctx); err != nil {
			logger.Error("staking accrual run failed", err, nil)
		}
	}
}
