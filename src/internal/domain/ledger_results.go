package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransferCommand struct {
	FromAddress string
	ToToken     string
	Amount      decimal.Decimal
}

// TransferResult carries the appended entry. WasRedirected and DeliveredTo are
// reported to the caller only and never persisted.
type TransferResult struct {
	Entry         LedgerEntry
	WasRedirected bool
	DeliveredTo   string
	SenderBalance decimal.Decimal
}

type MineCommand struct {
	AccountUID int64
	OriginHint string
}

type MineResult struct {
	Entry                 LedgerEntry
	MinedCoins            decimal.Decimal
	Balance               decimal.Decimal
	LastMiningTime        time.Time
	LastIPAddress         string
	NextMiningAvailableAt time.Time
}

type OpenStakeCommand struct {
	OwnerUID         int64
	Amount           decimal.Decimal
	Months           int
	DailyRatePercent decimal.Decimal
}

type StakeResult struct {
	Stake        Stake
	Entry        LedgerEntry
	OwnerBalance decimal.Decimal
}

type StakeOutcome string

const (
	StakeOutcomeAccrued StakeOutcome = "accrued"
	StakeOutcomeClosed  StakeOutcome = "closed"
	StakeOutcomeSkipped StakeOutcome = "skipped"
)

type AccrualReport struct {
	Processed int
	Accrued   int
	Closed    int
	Skipped   int
	Failed    int
}
