package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/usecase/services"
)

type stubLookup struct {
	byUID     map[int64]domain.Account
	byAddress map[string]domain.Account
}

func newStubLookup(accounts ...domain.Account) stubLookup {
	lookup := stubLookup{byUID: map[int64]domain.Account{}, byAddress: map[string]domain.Account{}}
	for _, account := range accounts {
		lookup.byUID[account.UID] = account
		lookup.byAddress[account.Address] = account
	}
	return lookup
}

func (s stubLookup) AccountByUID(ctx context.Context, uid int64) (domain.Account, error) {
	if account, ok := s.byUID[uid]; ok {
		return account, nil
	}
	return domain.Account{}, domain.ErrRecordNotFound
}

func (s stubLookup) AccountByAddress(ctx context.Context, address string) (domain.Account, error) {
	if account, ok := s.byAddress[address]; ok {
		return account, nil
	}
	return domain.Account{}, domain.ErrRecordNotFound
}

func TestAddressResolverResolve(t *testing.T) {
	sender := domain.Account{UID: 100001, Address: "0xsender"}
	recipient := domain.Account{UID: 200002, Address: "0xrecipient"}
	fallback := domain.Account{UID: 900009, Address: fallbackAddress}
	lookup := newStubLookup(sender, recipient, fallback)
	resolver := services.NewAddressResolver(fallbackAddress)

	cases := []struct {
		name       string
		token      string
		wantTo     string
		redirected bool
		wantErr    error
	}{
		{name: "by address", token: "0xrecipient", wantTo: "0xrecipient"},
		{name: "by identifier", token: "200002", wantTo: "0xrecipient"},
		{name: "unknown address", token: "0xnobody", wantTo: fallbackAddress, redirected: true},
		{name: "unknown identifier", token: "555555", wantTo: fallbackAddress, redirected: true},
		{name: "identifier overflow", token: "99999999999999999999999", wantTo: fallbackAddress, redirected: true},
		{name: "self by address", token: "0xsender", wantErr: domain.ErrSameAccount},
		{name: "self by identifier", token: "100001", wantErr: domain.ErrSameAccount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.Resolve(context.Background(), lookup, domain.ParseRecipientToken(tc.token), sender.UID)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got.DeliveredTo != tc.wantTo || got.Account.Address != tc.wantTo {
				t.Fatalf("expected delivery to %s, got %+v", tc.wantTo, got)
			}
			if got.WasRedirected != tc.redirected {
				t.Fatalf("expected redirected=%v", tc.redirected)
			}
		})
	}
}

func TestAddressResolverIsStableWithinOneLookup(t *testing.T) {
	recipient := domain.Account{UID: 200002, Address: "0xrecipient"}
	lookup := newStubLookup(recipient)
	resolver := services.NewAddressResolver(fallbackAddress)
	token := domain.ParseRecipientToken("200002")

	first, err := resolver.Resolve(context.Background(), lookup, token, 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), lookup, token, 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.Account.UID != second.Account.UID {
		t.Fatalf("expected the same account twice, got %d and %d", first.Account.UID, second.Account.UID)
	}
}

func TestAddressResolverFallbackMissing(t *testing.T) {
	lookup := newStubLookup()

	if _, err := services.NewAddressResolver("").Resolve(context.Background(), lookup, domain.ParseRecipientToken("0xnobody"), 1); !errors.Is(err, domain.ErrFallbackMissing) {
		t.Fatalf("expected ErrFallbackMissing for empty config, got %v", err)
	}
	if _, err := services.NewAddressResolver(fallbackAddress).Resolve(context.Background(), lookup, domain.ParseRecipientToken("0xnobody"), 1); !errors.Is(err, domain.ErrFallbackMissing) {
		t.Fatalf("expected ErrFallbackMissing for absent account, got %v", err)
	}
}
