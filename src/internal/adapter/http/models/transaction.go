package models

import (
	"time"

	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type TransactionResponse struct {
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

func NewTransactionResponse(entry domain.LedgerEntry) TransactionResponse {
	return TransactionResponse{
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

type LeaderboardRow struct {
	Address   string          `json:"address"`
	TotalSent decimal.Decimal `json:"totalSent"`
	TxCount   int64           `json:"txCount"`
}
