package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

var day0 = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func TestTransferDebitsAmountPlusFee(t *testing.T) {
	store := newStore(t)
	clock := newFakeClock(day0)
	publisher := &recordingPublisher{}
	ledger := newLedger(store, clock, publisher)

	sender := seedAccount(t, store, 100001, "0xsender", "100", true)
	recipient := seedAccount(t, store, 200002, "0xrecipient", "5", true)

	result, err := ledger.Transfer(context.Background(), domain.TransferCommand{
		FromAddress: sender.Address,
		ToToken:     recipient.Address,
		Amount:      dec("10"),
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if !result.SenderBalance.Equal(dec("89.999")) {
		t.Fatalf("expected sender balance 89.999, got %s", result.SenderBalance)
	}
	if got := balanceOf(t, store, sender.UID); !got.Equal(dec("89.999")) {
		t.Fatalf("expected stored sender balance 89.999, got %s", got)
	}
	if got := balanceOf(t, store, recipient.UID); !got.Equal(dec("15")) {
		t.Fatalf("expected recipient balance 15, got %s", got)
	}

	entry := result.Entry
	if !entry.Fee.Equal(dec("0.001")) {
		t.Fatalf("expected fee 0.001, got %s", entry.Fee)
	}
	if entry.BlockNumber != 1 || entry.PreviousBlock != 0 {
		t.Fatalf("expected first block, got %d/%d", entry.BlockNumber, entry.PreviousBlock)
	}
	if entry.Kind != domain.EntryKindTransfer || entry.From != sender.Address || entry.To != recipient.Address {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if len(entry.TransactionHash) != 64 {
		t.Fatalf("expected sha256 hex hash, got %q", entry.TransactionHash)
	}
	if result.WasRedirected || result.DeliveredTo != recipient.Address {
		t.Fatalf("unexpected delivery %v %q", result.WasRedirected, result.DeliveredTo)
	}
	if publisher.Count() != 1 {
		t.Fatalf("expected one published entry, got %d", publisher.Count())
	}
}

func TestTransferByIdentifierKeepsRequestedToken(t *testing.T) {
	store := newStore(t)
	ledger := newLedger(store, newFakeClock(day0), nil)

	sender := seedAccount(t, store, 100001, "0xsender", "20", true)
	recipient := seedAccount(t, store, 200002, "0xrecipient", "0", true)

	result, err := ledger.Transfer(context.Background(), domain.TransferCommand{
		FromAddress: sender.Address,
		ToToken:     " 200002 ",
		Amount:      dec("1"),
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if result.Entry.To != "200002" {
		t.Fatalf("expected entry to keep requested token, got %q", result.Entry.To)
	}
	if result.DeliveredTo != recipient.Address {
		t.Fatalf("expected delivery to %s, got %s", recipient.Address, result.DeliveredTo)
	}
	if got := balanceOf(t, store, recipient.UID); !got.Equal(dec("1")) {
		t.Fatalf("expected recipient balance 1, got %s", got)
	}
}

func TestTransferRedirectsUnknownRecipientToFallback(t *testing.T) {
	store := newStore(t)
	ledger := newLedger(store, newFakeClock(day0), nil)

	sender := seedAccount(t, store, 100001, "0xsender", "50", true)
	fallback := seedAccount(t, store, 900009, fallbackAddress, "0", true)

	result, err := ledger.Transfer(context.Background(), domain.TransferCommand{
		FromAddress: sender.Address,
		ToToken:     "0xnobody",
		Amount:      dec("5"),
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !result.WasRedirected || result.DeliveredTo != fallback.Address {
		t.Fatalf("expected redirect to fallback, got %v %q", result.WasRedirected, result.DeliveredTo)
	}
	if result.Entry.To != "0xnobody" {
		t.Fatalf("expected entry to keep requested token, got %q", result.Entry.To)
	}
	if got := balanceOf(t, store, fallback.UID); !got.Equal(dec("5")) {
		t.Fatalf("expected fallback balance 5, got %s", got)
	}
}

func TestTransferFailsWhenFallbackMissing(t *testing.T) {
	store := newStore(t)
	ledger := newLedger(store, newFakeClock(day0), nil)
	sender := seedAccount(t, store, 100001, "0xsender", "50", true)

	_, err := ledger.Transfer(context.Background(), domain.TransferCommand{
		FromAddress: sender.Address,
		ToToken:     "123456789012345678901234567890",
		Amount:      dec("5"),
	})
	if !errors.Is(err, domain.ErrFallbackMissing) {
		t.Fatalf("expected ErrFallbackMissing, got %v", err)
	}
	if got := balanceOf(t, store, sender.UID); !got.Equal(dec("50")) {
		t.Fatalf("sender balance must be untouched, got %s", got)
	}
	if entries := allEntries(t, store); len(entries) != 0 {
		t.Fatalf("expected empty chain, got %d entries", len(entries))
	}
}

func TestTransferRejectsSelfTransfer(t *testing.T) {
	store := newStore(t)
	ledger := newLedger(store, newFakeClock(day0), nil)
	sender := seedAccount(t, store, 100001, "0xsender", "50", true)

	_, err := ledger.Transfer(context.Background(), domain.TransferCommand{
		FromAddress: sender.Address,
		ToToken:     "100001",
		Amount:      dec("1"),
	})
	if !errors.Is(err, domain.ErrSameAccount) {
		t.Fatalf("expected ErrSameAccount for own uid, got %v", err)
	}
}

func TestTransferRejectsIdenticalTokensAsValidation(t *testing.T) {
	store := newStore(t)
	ledger := newLedger(store, newFakeClock(day0), nil)
	seedAccount(t, store, 100001, "0xsender", "50", true)

	for _, address := range []string{"0xsender", "0xghost"} {
		_, err := ledger.Transfer(context.Background(), domain.TransferCommand{
			FromAddress: address,
			ToToken:     " " + address,
			Amount:      dec("1"),
		})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", address, err)
		}
	}
	if got := balanceOf(t, store, 100001); !got.Equal(dec("50")) {
		t.Fatalf("sender balance must be untouched, got %s", got)
	}
	if entries := allEntries(t, store); len(entries) != 0 {
		t.Fatalf("expected empty chain, got %d entries", len(entries))
	}
}

func TestAmountsBeyondStoredScaleAreRejected(t *testing.T) {
	store := newStore(t)
	ledger := newLedger(store, newFakeClock(day0), nil)
	sender := seedAccount(t, store, 100001, "0xsender", "50", true)
	seedAccount(t, store, 200002, "0xrecipient", "0", true)

	_, err := ledger.Transfer(context.Background(), domain.TransferCommand{
		FromAddress: sender.Address,
		ToToken:     "0xrecipient",
		Amount:      dec("0.00000000001"),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("transfer: expected ErrValidation, got %v", err)
	}

	_, err = ledger.OpenStake(context.Background(), domain.OpenStakeCommand{
		OwnerUID:         sender.UID,
		Amount:           dec("1.00000000005"),
		Months:           1,
		DailyRatePercent: dec("0.5"),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("stake: expected ErrValidation, got %v", err)
	}

	if _, err := ledger.Transfer(context.Background(), domain.TransferCommand{
		FromAddress: sender.Address,
		ToToken:     "0xrecipient",
		Amount:      dec("1.000000000000"),
	}); err != nil {
		t.Fatalf("trailing zeros within scale should be accepted: %v", err)
	}
}

func TestTransferRejectsFallbackThatIsTheSender(t *testing.T) {
	store := newStore(t)
	ledger := newLedger(store, newFakeClock(day0), nil)
	fallback := seedAccount(t, store, 900009, fallbackAddress, "50", true)

	_, err := ledger.Transfer(context.Background(), domain.TransferCommand{
		FromAddress: fallback.Address,
		ToToken:     "0xnobody",
		Amount:      dec("1"),
	})
	if !errors.Is(err, domain.ErrSameAccount) {
		t.Fatalf("expected ErrSameAccount, got %v", err)
	}
}

func TestTransferBusinessRuleRejections(t *testing.T) {
	store := newStore(t)
	ledger := newLedger(store, newFakeClock(day0), nil)
	seedAccount(t, store, 100001, "0xverified", "10.001", true)
	seedAccount(t, store, 100002, "0xunverified", "100", false)
	seedAccount(t, store, 100003, "0xpoor", "10.0009", true)
	seedAccount(t, store, 200002, "0xrecipient", "0", true)

	cases := []struct {
		name string
		cmd  domain.TransferCommand
		want error
	}{
		{"unknown sender", domain.TransferCommand{FromAddress: "0xghost", ToToken: "0xrecipient", Amount: dec("1")}, domain.ErrSenderNotFound},
		{"unverified", domain.TransferCommand{FromAddress: "0xunverified", ToToken: "0xrecipient", Amount: dec("1")}, domain.ErrNotVerified},
		{"fee pushes over balance", domain.TransferCommand{FromAddress: "0xpoor", ToToken: "0xrecipient", Amount: dec("10")}, domain.ErrInsufficientBalance},
		{"zero amount", domain.TransferCommand{FromAddress: "0xverified", ToToken: "0xrecipient", Amount: decimal.Zero}, domain.ErrValidation},
		{"missing recipient", domain.TransferCommand{FromAddress: "0xverified", Amount: dec("1")}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.Transfer(context.Background(), tc.cmd)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := ledger.Transfer(context.Background(), domain.TransferCommand{
		FromAddress: "0xverified",
		ToToken:     "0xrecipient",
		Amount:      dec("10"),
	}); err != nil {
		t.Fatalf("exact balance transfer should succeed: %v", err)
	}
	if got := balanceOf(t, store, 100001); !got.IsZero() {
		t.Fatalf("expected zero balance, got %s", got)
	}
	if entries := allEntries(t, store); len(entries) != 1 {
		t.Fatalf("rejections must not append entries, got %d", len(entries))
	}
}

func TestTransferDailyQuotaResetsAtMidnight(t *testing.T) {
	store := newStore(t)
	clock := newFakeClock(day0)
	ledger := newLedger(store, clock, nil)
	sender := seedAccount(t, store, 100001, "0xsender", "100", true)
	seedAccount(t, store, 200002, "0xrecipient", "0", true)

	if _, err := ledger.Mine(context.Background(), domain.MineCommand{AccountUID: sender.UID}); err != nil {
		t.Fatalf("Mine: %v", err)
	}

	transfer := func() error {
		_, err := ledger.Transfer(context.Background(), domain.TransferCommand{
			FromAddress: sender.Address,
			ToToken:     "0xrecipient",
			Amount:      dec("1"),
		})
		return err
	}

	for i := 1; i <= 5; i++ {
		clock.Advance(time.Minute)
		if err := transfer(); err != nil {
			t.Fatalf("transfer %d: %v", i, err)
		}
	}
	if err := transfer(); !errors.Is(err, domain.ErrDailyLimitExceeded) {
		t.Fatalf("expected ErrDailyLimitExceeded on 6th transfer, got %v", err)
	}

	clock.Set(time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC))
	if err := transfer(); err != nil {
		t.Fatalf("transfer after midnight: %v", err)
	}
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	store := newStore(t)
	ledger := newLedger(store, newFakeClock(day0), nil)
	sender := seedAccount(t, store, 100001, "0xsender", "30.003", true)
	recipient := seedAccount(t, store, 200002, "0xrecipient", "0", true)

	const workers = 8
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successes    int
		insufficient int
		unexpected   []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Transfer(context.Background(), domain.TransferCommand{
				FromAddress: sender.Address,
				ToToken:     recipient.Address,
				Amount:      dec("10"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrInsufficientBalance):
				insufficient++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	wg.Wait()

	if len(unexpected) > 0 {
		t.Fatalf("unexpected errors: %v", unexpected)
	}
	if successes != 3 || insufficient != workers-3 {
		t.Fatalf("expected 3 successes and %d rejections, got %d/%d", workers-3, successes, insufficient)
	}
	if got := balanceOf(t, store, sender.UID); !got.IsZero() {
		t.Fatalf("expected sender drained to zero, got %s", got)
	}
	if got := balanceOf(t, store, recipient.UID); !got.Equal(dec("30")) {
		t.Fatalf("expected recipient balance 30, got %s", got)
	}
}

func TestChainStaysDenseWithUniqueHashes(t *testing.T) {
	store := newStore(t)
	clock := newFakeClock(day0)
	ledger := newLedger(store, clock, nil)
	a := seedAccount(t, store, 100001, "0xa", "100", true)
	b := seedAccount(t, store, 100002, "0xb", "100", true)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = ledger.Transfer(context.Background(), domain.TransferCommand{FromAddress: a.Address, ToToken: b.Address, Amount: dec("1")})
		}()
		go func() {
			defer wg.Done()
			_, _ = ledger.Transfer(context.Background(), domain.TransferCommand{FromAddress: b.Address, ToToken: a.Address, Amount: dec("2")})
		}()
	}
	wg.Wait()
	if _, err := ledger.Mine(context.Background(), domain.MineCommand{AccountUID: a.UID}); err != nil {
		t.Fatalf("Mine: %v", err)
	}

	entries := allEntries(t, store)
	if len(entries) != 9 {
		t.Fatalf("expected 9 entries, got %d", len(entries))
	}
	seen := map[string]bool{}
	for i, entry := range entries {
		if entry.BlockNumber != int64(i+1) || entry.PreviousBlock != int64(i) {
			t.Fatalf("entry %d has block %d/%d", i, entry.BlockNumber, entry.PreviousBlock)
		}
		if seen[entry.TransactionHash] {
			t.Fatalf("duplicate hash %s", entry.TransactionHash)
		}
		seen[entry.TransactionHash] = true
	}

	// 200 seeded plus the mining reward, minus the fees burned on 8 transfers.
	total := balanceOf(t, store, a.UID).Add(balanceOf(t, store, b.UID))
	fees := decimal.Zero
	for _, entry := range entries {
		fees = fees.Add(entry.Fee)
	}
	if !total.Add(fees).Equal(dec("202")) {
		t.Fatalf("coins not conserved: balances %s fees %s", total, fees)
	}
}

func TestTransferIsAtomicWhenAppendFails(t *testing.T) {
	base := newStore(t)
	sender := seedAccount(t, base, 100001, "0xsender", "100", true)
	recipient := seedAccount(t, base, 200002, "0xrecipient", "0", true)

	store := &failingStore{LedgerStore: base, appendErr: errors.New("disk full")}
	publisher := &recordingPublisher{}
	ledger := newLedger(store, newFakeClock(day0), publisher)

	_, err := ledger.Transfer(context.Background(), domain.TransferCommand{
		FromAddress: sender.Address,
		ToToken:     recipient.Address,
		Amount:      dec("10"),
	})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if got := balanceOf(t, base, sender.UID); !got.Equal(dec("100")) {
		t.Fatalf("sender balance leaked partial update: %s", got)
	}
	if got := balanceOf(t, base, recipient.UID); !got.IsZero() {
		t.Fatalf("recipient balance leaked partial update: %s", got)
	}
	if publisher.Count() != 0 {
		t.Fatalf("aborted transfer must not be published")
	}
}

func TestMineEnforcesCooldown(t *testing.T) {
	store := newStore(t)
	clock := newFakeClock(day0)
	ledger := newLedger(store, clock, nil)
	miner := seedAccount(t, store, 100001, "0xminer", "0", false)

	first, err := ledger.Mine(context.Background(), domain.MineCommand{AccountUID: miner.UID, OriginHint: "10.0.0.7"})
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if !first.Balance.Equal(dec("2")) || !first.MinedCoins.Equal(dec("2")) {
		t.Fatalf("unexpected reward %+v", first)
	}
	if first.Entry.From != domain.SystemAddress || first.Entry.To != "100001" || !first.Entry.Fee.IsZero() {
		t.Fatalf("unexpected mining entry %+v", first.Entry)
	}
	if !first.NextMiningAvailableAt.Equal(day0.Add(24 * time.Hour)) {
		t.Fatalf("unexpected next mining time %s", first.NextMiningAvailableAt)
	}

	clock.Advance(23*time.Hour + 59*time.Minute)
	_, err = ledger.Mine(context.Background(), domain.MineCommand{AccountUID: miner.UID})
	var cooldown *domain.CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("expected CooldownError, got %v", err)
	}
	if !errors.Is(err, domain.ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive match")
	}
	if !cooldown.NextAvailableAt.Equal(day0.Add(24 * time.Hour)) {
		t.Fatalf("unexpected NextAvailableAt %s", cooldown.NextAvailableAt)
	}
	if cooldown.Remaining != time.Minute {
		t.Fatalf("expected one minute remaining, got %s", cooldown.Remaining)
	}

	clock.Set(day0.Add(24 * time.Hour))
	second, err := ledger.Mine(context.Background(), domain.MineCommand{AccountUID: miner.UID})
	if err != nil {
		t.Fatalf("Mine at cooldown boundary: %v", err)
	}
	if second.LastIPAddress != "unknown" {
		t.Fatalf("expected default origin, got %q", second.LastIPAddress)
	}
	if got := balanceOf(t, store, miner.UID); !got.Equal(dec("4")) {
		t.Fatalf("expected balance 4, got %s", got)
	}
}

func TestMineUnknownAccount(t *testing.T) {
	store := newStore(t)
	ledger := newLedger(store, newFakeClock(day0), nil)

	if _, err := ledger.Mine(context.Background(), domain.MineCommand{AccountUID: 424242}); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := ledger.Mine(context.Background(), domain.MineCommand{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
