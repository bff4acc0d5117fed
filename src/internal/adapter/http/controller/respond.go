package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/codexac/coin-ledger/src/internal/commons"
	"github.com/codexac/coin-ledger/src/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusFor maps ledger and store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSenderNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrStakeNotFound),
		errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotVerified),
		errors.Is(err, domain.ErrDailyLimitExceeded):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrCooldownActive):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the caller facing message for err. Store and
// configuration failures never expose their cause.
func messageFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "Ledger is temporarily unavailable"
	case errors.Is(err, domain.ErrFallbackMissing):
		return "Transfer could not be delivered"
	case statusFor(err) == http.StatusInternalServerError:
		return "internal server error"
	default:
		return err.Error()
	}
}

func failure[T any](err error) commons.Response[T] {
	if errors.Is(err, domain.ErrValidation) {
		return commons.ErrorResponse[T]("validation failed", err.Error())
	}
	return commons.ErrorResponse[T](messageFor(err))
}

func methodNotAllowed(w http.ResponseWriter, allowed string) int {
	w.Header().Set("Allow", allowed)
	return http.StatusMethodNotAllowed
}
