package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	UID            int64
	Address        string
	Username       string
	Email          string
	PasswordHash   string
	Balance        decimal.Decimal
	IsVerified     bool
	LastMiningTime *time.Time
	LastIPAddress  string
	CreatedAt      time.Time
}

// AddressHistory records the network origin of a mining claim.
type AddressHistory struct {
	ID         int64
	AccountUID int64
	IPAddress  string
	CreatedAt  time.Time
}
