package controller_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/events"
	"github.com/codexac/coin-ledger/src/internal/adapter/http/controller"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

type stubChain struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
}

func newStubChain(blocks int64) *stubChain {
	chain := &stubChain{}
	chain.extend(blocks)
	return chain
}

// extend appends blocks up to and including head.
func (s *stubChain) extend(head int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for block := int64(len(s.entries)) + 1; block <= head; block++ {
		s.entries = append(s.entries, feedEntry(block))
	}
}

func (s *stubChain) ListEntries(ctx context.Context, afterBlock int64, limit int) ([]domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.LedgerEntry
	for _, entry := range s.entries {
		if entry.BlockNumber > afterBlock && len(out) < limit {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *stubChain) ChainHead(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.entries)), nil
}

func feedEntry(block int64) domain.LedgerEntry {
	return domain.LedgerEntry{
		Kind:            domain.EntryKindTransfer,
		From:            "0xa",
		To:              "0xb",
		Amount:          decimal.NewFromInt(1),
		Fee:             decimal.RequireFromString("0.0001"),
		BlockNumber:     block,
		PreviousBlock:   block - 1,
		TransactionHash: "h",
	}
}

func dialFeed(t *testing.T, hub *events.Hub, chain *stubChain, query string) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	controller.NewLedgerFeedController(hub, chain).RegisterRoutes(mux, nil)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/ledger" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readBlocks(t *testing.T, conn *websocket.Conn, n int) []int64 {
	t.Helper()
	blocks := make([]int64, 0, n)
	for len(blocks) < n {
		var event events.LedgerEntryCommitted
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("read after %v: %v", blocks, err)
		}
		blocks = append(blocks, event.BlockNumber)
	}
	return blocks
}

func expectBlocks(t *testing.T, got []int64, from int64) {
	t.Helper()
	for i, block := range got {
		if block != from+int64(i) {
			t.Fatalf("expected contiguous blocks from %d, got %v", from, got)
		}
	}
}

func TestLedgerFeedCatchesUpThenStreams(t *testing.T) {
	hub := events.NewHub()
	conn := dialFeed(t, hub, newStubChain(3), "?after=1")

	expectBlocks(t, readBlocks(t, conn, 2), 2)

	// Block 3 arrives again from the hub and must be deduplicated.
	_ = hub.PublishEntry(context.Background(), feedEntry(3))
	_ = hub.PublishEntry(context.Background(), feedEntry(4))

	if got := readBlocks(t, conn, 1); got[0] != 4 {
		t.Fatalf("expected live block 4, got %v", got)
	}
}

func TestLedgerFeedFillsOutOfOrderEventsFromStore(t *testing.T) {
	hub := events.NewHub()
	chain := newStubChain(9)
	conn := dialFeed(t, hub, chain, "")

	// Blocks 10 and 11 commit, but 11 publishes first.
	chain.extend(12)
	_ = hub.PublishEntry(context.Background(), feedEntry(11))
	_ = hub.PublishEntry(context.Background(), feedEntry(10))
	_ = hub.PublishEntry(context.Background(), feedEntry(12))
	_ = hub.PublishEntry(context.Background(), feedEntry(13))

	got := readBlocks(t, conn, 4)
	expectBlocks(t, got, 10)
}

func TestLedgerFeedStartsAtChainHeadWithoutCursor(t *testing.T) {
	hub := events.NewHub()
	chain := newStubChain(5)
	conn := dialFeed(t, hub, chain, "")

	chain.extend(6)
	_ = hub.PublishEntry(context.Background(), feedEntry(6))

	if got := readBlocks(t, conn, 1); got[0] != 6 {
		t.Fatalf("expected stream to start after head, got %v", got)
	}
}

func TestLedgerFeedCatchUpReadsEveryPage(t *testing.T) {
	hub := events.NewHub()
	conn := dialFeed(t, hub, newStubChain(1203), "?after=0")

	got := readBlocks(t, conn, 1203)
	expectBlocks(t, got, 1)
}

func TestLedgerFeedRejectsBadCursor(t *testing.T) {
	mux := http.NewServeMux()
	controller.NewLedgerFeedController(events.NewHub(), newStubChain(0)).RegisterRoutes(mux, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws/ledger?after=abc", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
