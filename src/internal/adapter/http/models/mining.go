package models

import (
	"errors"
	"time"

	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type MineRequest struct {
	UserID    int64  `json:"userId"`
	IPAddress string `json:"ipaddress"`
}

func (r MineRequest) Validate() error {
	if r.UserID <= 0 {
		return errors.New("userId is required")
	}
	return nil
}

type MineResponse struct {
	Transaction           *TransactionResponse `json:"transaction,omitempty"`
	MinedCoins            *decimal.Decimal     `json:"minedCoins,omitempty"`
	TotalCoins            *decimal.Decimal     `json:"totalCoins,omitempty"`
	LastMiningTime        *time.Time           `json:"lastMiningTime,omitempty"`
	LastIPAddress         string               `json:"lastIpAddress,omitempty"`
	NextMiningAvailableAt time.Time            `json:"nextMiningAvailableAt"`
}

func NewMineResponse(result domain.MineResult) MineResponse {
	tx := NewTransactionResponse(result.Entry)
	return MineResponse{
		Transaction:           &tx,
		MinedCoins:            &result.MinedCoins,
		TotalCoins:            &result.Balance,
		LastMiningTime:        &result.LastMiningTime,
		LastIPAddress:         result.LastIPAddress,
		NextMiningAvailableAt: result.NextMiningAvailableAt,
	}
}
