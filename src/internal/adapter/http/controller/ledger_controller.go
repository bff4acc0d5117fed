package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/http/models"
	"github.com/codexac/coin-ledger/src/internal/commons"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/logger"
	"github.com/codexac/coin-ledger/src/internal/usecase/service_interfaces"
)

// LedgerController exposes the balance-changing operations: transfer,
// mining and opening a stake.
type LedgerController struct {
	service service_interfaces.LedgerService
}

func NewLedgerController(service service_interfaces.LedgerService) *LedgerController {
	return &LedgerController{service: service}
}

func (c *LedgerController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(h http.HandlerFunc) http.Handler {
		if authMiddleware == nil {
			return h
		}
		return authMiddleware(h)
	}

	mux.Handle("/api/transfer", wrap(c.transfer))
	mux.Handle("/api/mining/coin", wrap(c.mine))
	mux.Handle("/api/stake/coin", wrap(c.stake))
}

func (c *LedgerController) transfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		status := methodNotAllowed(w, http.MethodPost)
		response := commons.ErrorResponse[models.TransferResponse]("method not allowed")
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.TransferResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		response := commons.ErrorResponse[models.TransferResponse]("validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	result, err := c.service.Transfer(r.Context(), req.Command())
	if err != nil {
		logError(r, err, nil)
		status := statusFor(err)
		response := failure[models.TransferResponse](err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("Transfer completed", models.NewTransferResponse(result))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *LedgerController) mine(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		status := methodNotAllowed(w, http.MethodPost)
		response := commons.ErrorResponse[models.MineResponse]("method not allowed")
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	var req models.MineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.MineResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		response := commons.ErrorResponse[models.MineResponse]("validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	origin := ClientIP(r)
	if origin == "" {
		origin = strings.TrimSpace(req.IPAddress)
	}

	result, err := c.service.Mine(r.Context(), domain.MineCommand{AccountUID: req.UserID, OriginHint: origin})
	if err != nil {
		logError(r, err, logger.Fields{"userId": req.UserID})
		status := statusFor(err)

		var cooldown *domain.CooldownError
		if errors.As(err, &cooldown) {
			response := commons.ErrorResponseWithData(
				"You can mine again after the cooldown",
				models.MineResponse{NextMiningAvailableAt: cooldown.NextAvailableAt},
				err.Error(),
			)
			writeJSON(w, status, response)
			logResponse(r, status, response, start)
			return
		}

		response := failure[models.MineResponse](err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("Mining successful", models.NewMineResponse(result))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *LedgerController) stake(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		status := methodNotAllowed(w, http.MethodPost)
		response := commons.ErrorResponse[models.StakeResponse]("method not allowed")
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	var req models.StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.StakeResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		response := commons.ErrorResponse[models.StakeResponse]("validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	result, err := c.service.OpenStake(r.Context(), req.Command())
	if err != nil {
		logError(r, err, logger.Fields{"uid": req.UID})
		status := statusFor(err)
		response := failure[models.StakeResponse](err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("Coins staked successfully", models.NewStakeResponse(result))
	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}
