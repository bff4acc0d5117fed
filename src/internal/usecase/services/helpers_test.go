package services_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/adapter/repository/sqlite"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

const fallbackAddress = "0xfa11bac000000000000000000000000000000000"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
}

func (p *recordingPublisher) PublishEntry(ctx context.Context, entry domain.LedgerEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return nil
}

func (p *recordingPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func settingsFor(clock *fakeClock) services.LedgerSettings {
	return services.LedgerSettings{
		FallbackAddress:    fallbackAddress,
		MiningReward:       decimal.NewFromInt(2),
		MiningCooldown:     24 * time.Hour,
		TransferFeeRate:    decimal.RequireFromString("0.0001"),
		DailyTransferQuota: 5,
		Location:           time.UTC,
		Now:                clock.Now,
	}
}

func newLedger(store repo_interfaces.LedgerStore, clock *fakeClock, publisher repo_interfaces.EventPublisher) *services.LedgerService {
	return services.NewLedgerService(store, publisher, settingsFor(clock))
}

func seedAccount(t *testing.T, store repo_interfaces.LedgerStore, uid int64, address string, balance string, verified bool) domain.Account {
	t.Helper()
	account, err := store.CreateAccount(context.Background(), domain.Account{
		UID:          uid,
		Address:      address,
		Username:     address,
		Email:        address + "@ledger.test",
		PasswordHash: "x",
		Balance:      decimal.RequireFromString(balance),
		IsVerified:   verified,
	})
	if err != nil {
		t.Fatalf("seed account %s: %v", address, err)
	}
	return account
}

func balanceOf(t *testing.T, store repo_interfaces.LedgerStore, uid int64) decimal.Decimal {
	t.Helper()
	account, err := store.GetAccountByUID(context.Background(), uid)
	if err != nil {
		t.Fatalf("load account %d: %v", uid, err)
	}
	return account.Balance
}

func allEntries(t *testing.T, store repo_interfaces.LedgerStore) []domain.LedgerEntry {
	t.Helper()
	entries, err := store.ListEntries(context.Background(), 0, 1000)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	return entries
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// failingStore fails the chain append inside an otherwise real transaction.
type failingStore struct {
	repo_interfaces.LedgerStore
	appendErr error
}

func (s *failingStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx repo_interfaces.LedgerTx) error) error {
	return s.LedgerStore.WithinTransaction(ctx, func(ctx context.Context, tx repo_interfaces.LedgerTx) error {
		return fn(ctx, &failingTx{LedgerTx: tx, appendErr: s.appendErr})
	})
}

type failingTx struct {
	repo_interfaces.LedgerTx
	appendErr error
}

func (t *failingTx) AppendEntry(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	return domain.LedgerEntry{}, t.appendErr
}
