package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SystemAddress is the sender of coins minted by the ledger itself.
const SystemAddress = "SYSTEM"

// AmountScale is the number of decimal places kept for coin amounts.
const AmountScale = 10

// StakeAddress is the counterparty of principal moved in and out of stakes.
const StakeAddress = "STAKE"

type EntryKind string

const (
	EntryKindTransfer      EntryKind = "transfer"
	EntryKindMining        EntryKind = "mining"
	EntryKindStakeOpen     EntryKind = "stake_open"
	EntryKindStakeInterest EntryKind = "stake_interest"
	EntryKindStakeReturn   EntryKind = "stake_return"
)

// LedgerEntry is one immutable block of the transaction chain.
type LedgerEntry struct {
	ID              int64
	Kind            EntryKind
	From            string
	To              string
	Amount          decimal.Decimal
	Fee             decimal.Decimal
	BlockNumber     int64
	PreviousBlock   int64
	TransactionHash string
	CreatedAt       time.Time
}

// SenderTotal is one leaderboard row.
type SenderTotal struct {
	Address   string
	TotalSent decimal.Decimal
	TxCount   int64
}

// ExceedsAmountScale reports whether amount carries more than AmountScale
// significant decimal places.
func ExceedsAmountScale(amount decimal.Decimal) bool {
	return !amount.Equal(amount.Truncate(AmountScale))
}
