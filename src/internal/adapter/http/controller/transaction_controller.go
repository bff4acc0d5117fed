package controller

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/http/models"
	"github.com/codexac/coin-ledger/src/internal/commons"
	"github.com/codexac/coin-ledger/src/internal/logger"
)

type QueryService interface {
	GetTransaction(ctx context.Context, hash string) (commons.Response[models.TransactionResponse], error)
	ListTransactions(ctx context.Context, address string) (commons.Response[[]models.TransactionResponse], error)
	Leaderboard(ctx context.Context) (commons.Response[[]models.LeaderboardRow], error)
}

type TransactionController struct {
	service QueryService
}

func NewTransactionController(service QueryService) *TransactionController {
	return &TransactionController{service: service}
}

func (c *TransactionController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.HandleFunc("/api/transactions", c.transactions)
	mux.HandleFunc("/api/leaderboard", c.leaderboard)
}

// transactions serves a single entry for ?hash= or the history of ?address=.
func (c *TransactionController) transactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		status := methodNotAllowed(w, http.MethodGet)
		response := commons.ErrorResponse[models.TransactionResponse]("method not allowed")
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	query := r.URL.Query()
	if hash := strings.TrimSpace(query.Get("hash")); hash != "" {
		response, err := c.service.GetTransaction(r.Context(), hash)
		status := http.StatusOK
		if err != nil {
			logError(r, err, logger.Fields{"message": response.Message})
			status = statusFor(err)
		}
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response, err := c.service.ListTransactions(r.Context(), query.Get("address"))
	status := http.StatusOK
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status = statusFor(err)
	}
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

func (c *TransactionController) leaderboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		status := methodNotAllowed(w, http.MethodGet)
		response := commons.ErrorResponse[[]models.LeaderboardRow]("method not allowed")
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response, err := c.service.Leaderboard(r.Context())
	status := http.StatusOK
	if err != nil {
		logError(r, err, nil)
		status = statusFor(err)
	}
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}
