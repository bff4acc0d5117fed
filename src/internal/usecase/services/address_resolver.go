package services

import (
	"context"
	"errors"
	"strings"

	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/logger"
)

type Resolution struct {
	Account       domain.Account
	WasRedirected bool
	DeliveredTo   string
}

// AddressResolver maps a recipient token to an account, falling back to a
// configured catch-all account when nothing matches.
type AddressResolver struct {
	fallbackAddress string
}

func NewAddressResolver(fallbackAddress string) *AddressResolver {
	return &AddressResolver{fallbackAddress: strings.TrimSpace(fallbackAddress)}
}

func (r *AddressResolver) Resolve(ctx context.Context, lookup repo_interfaces.AccountLookup, token domain.RecipientToken, senderUID int64) (Resolution, error) {
	account, err := r.find(ctx, lookup, token)
	if err == nil {
		if account.UID == senderUID {
			return Resolution{}, domain.ErrSameAccount
		}
		return Resolution{Account: account, DeliveredTo: account.Address}, nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return Resolution{}, err
	}

	if r.fallbackAddress == "" {
		logger.Error("address resolver fallback address not configured", domain.ErrFallbackMissing, nil)
		return Resolution{}, domain.ErrFallbackMissing
	}

	fallback, err := lookup.AccountByAddress(ctx, r.fallbackAddress)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			logger.Error("address resolver fallback account missing", domain.ErrFallbackMissing, logger.Fields{
				"fallbackAddress": r.fallbackAddress,
			})
			return Resolution{}, domain.ErrFallbackMissing
		}
		return Resolution{}, err
	}
	if fallback.UID == senderUID {
		return Resolution{}, domain.ErrSameAccount
	}

	logger.Info("address resolver redirected to fallback", logger.Fields{
		"token":           token.Raw,
		"fallbackAddress": fallback.Address,
	})
	return Resolution{Account: fallback, WasRedirected: true, DeliveredTo: fallback.Address}, nil
}

func (r *AddressResolver) find(ctx context.Context, lookup repo_interfaces.AccountLookup, token domain.RecipientToken) (domain.Account, error) {
	switch token.Kind {
	case domain.ByIdentifier:
		if token.Overflow {
			return domain.Account{}, domain.ErrRecordNotFound
		}
		return lookup.AccountByUID(ctx, token.UID)
	default:
		return lookup.AccountByAddress(ctx, token.Raw)
	}
}
