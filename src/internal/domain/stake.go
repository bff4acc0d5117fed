package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Stake struct {
	ID                       int64
	OwnerUID                 int64
	Amount                   decimal.Decimal
	Months                   int
	DailyInterestRatePercent decimal.Decimal
	StartDate                time.Time
	EndDate                  time.Time
	IsActive                 bool
	LastAccruedAt            *time.Time
	CreatedAt                time.Time
}

// DailyInterest is the amount credited to the owner for one accrual cycle.
func (s Stake) DailyInterest() decimal.Decimal {
	return s.Amount.Mul(s.DailyInterestRatePercent).Div(decimal.NewFromInt(100))
}

// Matured reports whether the stake has reached its end date at now.
func (s Stake) Matured(now time.Time) bool {
	return !now.Before(s.EndDate)
}
