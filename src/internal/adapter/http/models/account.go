package models

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

const minPasswordLength = 6

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SignupRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.Username) == "" {
		errs = append(errs, "username is required")
	}
	email := strings.TrimSpace(r.Email)
	if email == "" {
		errs = append(errs, "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs = append(errs, "email is invalid")
	}
	if len(r.Password) < minPasswordLength {
		errs = append(errs, "password must be at least 6 characters long")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type VerifyAccountRequest struct {
	UID int64 `json:"uid"`
}

func (r VerifyAccountRequest) Validate() error {
	if r.UID <= 0 {
		return errors.New("uid is required")
	}
	return nil
}

type AccountResponse struct {
	UID            int64           `json:"uid"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Address        string          `json:"address"`
	TotalCoins     decimal.Decimal `json:"totalCoins"`
	IsVerified     bool            `json:"isVerified"`
	LastMiningTime *time.Time      `json:"lastMiningTime,omitempty"`
	LastIPAddress  string          `json:"lastIpAddress,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func NewAccountResponse(account domain.Account) AccountResponse {
	return AccountResponse{
		UID:            account.UID,
		Username:       account.Username,
		Email:          account.Email,
		Address:        account.Address,
		TotalCoins:     account.Balance,
		IsVerified:     account.IsVerified,
		LastMiningTime: account.LastMiningTime,
		LastIPAddress:  account.LastIPAddress,
		CreatedAt:      account.CreatedAt,
	}
}
