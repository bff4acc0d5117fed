package models

import (
	"errors"
	"strings"
	"time"

	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type StakeRequest struct {
	UID          int64           `json:"uid"`
	Amount       decimal.Decimal `json:"amount"`
	Months       int             `json:"months"`
	InterestRate decimal.Decimal `json:"interestRate"`
}

func (r StakeRequest) Validate() error {
	var errs []string

	if r.UID <= 0 {
		errs = append(errs, "uid is required")
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	} else if domain.ExceedsAmountScale(r.Amount) {
		errs = append(errs, "amount must have at most 10 decimal places")
	}
	if r.Months <= 0 {
		errs = append(errs, "months must be greater than zero")
	}
	if r.InterestRate.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "interestRate must be greater than zero")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (r StakeRequest) Command() domain.OpenStakeCommand {
	return domain.OpenStakeCommand{
		OwnerUID:         r.UID,
		Amount:           r.Amount,
		Months:           r.Months,
		DailyRatePercent: r.InterestRate,
	}
}

type StakeResponse struct {
	ID           int64               `json:"id"`
	UID          int64               `json:"uid"`
	Amount       decimal.Decimal     `json:"amount"`
	Months       int                 `json:"months"`
	InterestRate decimal.Decimal     `json:"interestRate"`
	StartDate    time.Time           `json:"startDate"`
	EndDate      time.Time           `json:"endDate"`
	IsActive     bool                `json:"isActive"`
	UserBalance  decimal.Decimal     `json:"userBalance"`
	Transaction  TransactionResponse `json:"transaction"`
}

func NewStakeResponse(result domain.StakeResult) StakeResponse {
	return StakeResponse{
		ID:           result.Stake.ID,
		UID:          result.Stake.OwnerUID,
		Amount:       result.Stake.Amount,
		Months:       result.Stake.Months,
		InterestRate: result.Stake.DailyInterestRatePercent,
		StartDate:    result.Stake.StartDate,
		EndDate:      result.Stake.EndDate,
		IsActive:     result.Stake.IsActive,
		UserBalance:  result.OwnerBalance,
		Transaction:  NewTransactionResponse(result.Entry),
	}
}
