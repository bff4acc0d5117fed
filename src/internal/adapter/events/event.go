// Package events delivers committed ledger entries to Kafka and to live
// websocket subscribers.
package events

import (
	"time"

	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntryCommitted is emitted once per committed ledger entry.
type LedgerEntryCommitted struct {
	EventID         string          `json:"eventId"`
	Kind            string          `json:"kind"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Amount          decimal.Decimal `json:"amount"`
	Fee             decimal.Decimal `json:"fee"`
	BlockNumber     int64           `json:"blockNumber"`
	PreviousBlock   int64           `json:"previousBlock"`
	TransactionHash string          `json:"transactionHash"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func NewLedgerEntryCommitted(entry domain.LedgerEntry) LedgerEntryCommitted {
	return LedgerEntryCommitted{
		EventID:         uuid.NewString(),
		Kind:            string(entry.Kind),
		From:            entry.From,
		To:              entry.To,
		Amount:          entry.Amount,
		Fee:             entry.Fee,
		BlockNumber:     entry.BlockNumber,
		PreviousBlock:   entry.PreviousBlock,
		TransactionHash: entry.TransactionHash,
		CreatedAt:       entry.CreatedAt,
	}
}
