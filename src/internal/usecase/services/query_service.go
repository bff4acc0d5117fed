package services

import (
	"context"
	"errors"
	"strings"

	"github.com/codexac/coin-ledger/src/internal/adapter/http/models"
	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/commons"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/logger"
)

const (
	defaultHistoryLimit = 50
	leaderboardSize     = 10
)

// QueryService serves read-only views of the transaction chain.
type QueryService struct {
	store repo_interfaces.LedgerStore
}

func NewQueryService(store repo_interfaces.LedgerStore) *QueryService {
	return &QueryService{store: store}
}

func (s *QueryService) GetTransaction(ctx context.Context, hash string) (commons.Response[models.TransactionResponse], error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		err := domain.ValidationError("transaction hash is required")
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", "Transaction hash is required"), err
	}

	entry, err := s.store.GetEntryByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransactionResponse]("Transaction not found"), err
		}
		logger.Error("query service get transaction failed", err, logger.Fields{"transactionHash": hash})
		return commons.ErrorResponse[models.TransactionResponse]("failed to fetch transaction", "Unable to fetch transaction right now"), err
	}

	return commons.SuccessResponse("transaction fetched successfully", models.NewTransactionResponse(entry)), nil
}

func (s *QueryService) ListTransactions(ctx context.Context, address string) (commons.Response[[]models.TransactionResponse], error) {
	address = strings.TrimSpace(address)
	if address == "" {
		err := domain.ValidationError("address is required")
		return commons.ErrorResponse[[]models.TransactionResponse]("validation failed", "address is required"), err
	}

	entries, err := s.store.ListEntriesByAddress(ctx, address, defaultHistoryLimit)
	if err != nil {
		logger.Error("query service list transactions failed", err, logger.Fields{"address": address})
		return commons.ErrorResponse[[]models.TransactionResponse]("failed to fetch transactions", "Unable to fetch transactions right now"), err
	}

	out := make([]models.TransactionResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, models.NewTransactionResponse(entry))
	}
	return commons.SuccessResponse("transactions fetched successfully", out), nil
}

func (s *QueryService) Leaderboard(ctx context.Context) (commons.Response[[]models.LeaderboardRow], error) {
	totals, err := s.store.TopSenders(ctx, leaderboardSize)
	if err != nil {
		logger.Error("query service leaderboard failed", err, nil)
		return commons.ErrorResponse[[]models.LeaderboardRow]("failed to fetch leaderboard", "Unable to fetch leaderboard right now"), err
	}

	rows := make([]models.LeaderboardRow, 0, len(totals))
	for _, total := range totals {
		rows = append(rows, models.LeaderboardRow{
			Address:   total.Address,
			TotalSent: total.TotalSent,
			TxCount:   total.TxCount,
		})
	}
	return commons.SuccessResponse("leaderboard fetched successfully", rows), nil
}
