package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrRecordNotFound = errors.New("Record not found")
var ErrValidation = errors.New("validation failed")
var ErrSenderNotFound = errors.New("Sender address not found")
var ErrAccountNotFound = errors.New("Account not found")
var ErrSameAccount = errors.New("Cannot send coins to the same account")
var ErrInsufficientBalance = errors.New("Insufficient balance")
var ErrNotVerified = errors.New("Account is not verified")
var ErrDailyLimitExceeded = errors.New("Daily transaction limit reached")
var ErrFallbackMissing = errors.New("Fallback account is not configured")
var ErrStoreUnavailable = errors.New("Ledger store unavailable")
var ErrCooldownActive = errors.New("Mining cooldown active")
var ErrStakeNotFound = errors.New("Stake not found")
var ErrDuplicateAccount = errors.New("Account already exists")

// ValidationError returns an error matching ErrValidation with a caller facing reason.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type CooldownError struct {
	NextAvailableAt time.Time
	Remaining       time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s until %s", ErrCooldownActive.Error(), e.NextAvailableAt.Format(time.RFC3339))
}

func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}
