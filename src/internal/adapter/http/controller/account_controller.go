package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/http/models"
	"github.com/codexac/coin-ledger/src/internal/commons"
	"github.com/codexac/coin-ledger/src/internal/logger"
)

type AccountService interface {
	Signup(ctx context.Context, req models.SignupRequest) (commons.Response[models.AccountResponse], error)
	GetAccount(ctx context.Context, uid string) (commons.Response[models.AccountResponse], error)
	VerifyAccount(ctx context.Context, req models.VerifyAccountRequest) (commons.Response[models.AccountResponse], error)
}

type AccountController struct {
	service AccountService
}

func NewAccountController(service AccountService) *AccountController {
	return &AccountController{service: service}
}

func (c *AccountController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	verify := http.Handler(http.HandlerFunc(c.verify))
	if authMiddleware != nil {
		verify = authMiddleware(verify)
	}

	mux.HandleFunc("/api/signup", c.signup)
	mux.HandleFunc("/api/accounts", c.getAccount)
	mux.Handle("/api/accounts/verify", verify)
}

func (c *AccountController) signup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		status := methodNotAllowed(w, http.MethodPost)
		response := commons.ErrorResponse[models.AccountResponse]("method not allowed")
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.AccountResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	response, err := c.service.Signup(r.Context(), req)
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusFor(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *AccountController) getAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		status := methodNotAllowed(w, http.MethodGet)
		response := commons.ErrorResponse[models.AccountResponse]("method not allowed")
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response, err := c.service.GetAccount(r.Context(), r.URL.Query().Get("uid"))
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusFor(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *AccountController) verify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		status := methodNotAllowed(w, http.MethodPost)
		response := commons.ErrorResponse[models.AccountResponse]("method not allowed")
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	var req models.VerifyAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.AccountResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	response, err := c.service.VerifyAccount(r.Context(), req)
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusFor(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
