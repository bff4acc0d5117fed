package services

import (
	"context"
	"fmt"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
)

// RateLimiter enforces the daily quota of user initiated transfers.
type RateLimiter struct {
	quota    int
	location *time.Location
}

func NewRateLimiter(quota int, location *time.Location) *RateLimiter {
	if location == nil {
		location = time.Local
	}
	return &RateLimiter{
		quota:    quota,
		location: location,
	}
}

// StartOfDay truncates now to 00:00:00 of the same calendar day in server local time.
func (l *RateLimiter) StartOfDay(now time.Time) time.Time {
	local := now.In(l.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, l.location)
}

func (l *RateLimiter) CountToday(ctx context.Context, counter repo_interfaces.TransferCounter, address string, now time.Time) (int, error) {
	count, err := counter.CountTransfersSince(ctx, address, l.StartOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("count transfers today: %w", err)
	}
	return count, nil
}

// Allow reports whether address may send another transfer today, along with
// the number already sent.
func (l *RateLimiter) Allow(ctx context.Context, counter repo_interfaces.TransferCounter, address string, now time.Time) (bool, int, error) {
	count, err := l.CountToday(ctx, counter, address, now)
	if err != nil {
		return false, 0, err
	}
	return count < l.quota, count, nil
}

func (l *RateLimiter) Quota() int {
	return l.quota
}
