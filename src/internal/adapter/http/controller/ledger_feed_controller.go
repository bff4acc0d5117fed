package controller

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/events"
	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/logger"
	"github.com/gorilla/websocket"
)

const (
	feedBuffer       = 64
	feedPageSize     = 500
	feedWriteTimeout = 5 * time.Second
)

type EntrySubscriber interface {
	Subscribe(buffer int) (<-chan events.LedgerEntryCommitted, func())
}

type ChainReader interface {
	ListEntries(ctx context.Context, afterBlock int64, limit int) ([]domain.LedgerEntry, error)
	ChainHead(ctx context.Context) (int64, error)
}

// LedgerFeedController streams committed entries over a websocket in block
// order. A client passing ?after=N first receives the stored entries above
// block N; without it the stream starts at the current chain head.
type LedgerFeedController struct {
	subscriber EntrySubscriber
	chain      ChainReader
	upgrader   websocket.Upgrader
}

func NewLedgerFeedController(subscriber EntrySubscriber, chain ChainReader) *LedgerFeedController {
	return &LedgerFeedController{
		subscriber: subscriber,
		chain:      chain,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (c *LedgerFeedController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.HandleFunc("/ws/ledger", c.stream)
}

func (c *LedgerFeedController) stream(w http.ResponseWriter, r *http.Request) {
	logRequest(r, nil)

	after, err := parseAfter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure[struct{}](domain.ValidationError("after must be a block number")))
		return
	}

	// Subscribe before reading the store so nothing committed in between is lost.
	feed, release := c.subscriber.Subscribe(feedBuffer)
	defer release()

	lastSent := after
	if after < 0 {
		if lastSent, err = c.chain.ChainHead(r.Context()); err != nil {
			logError(r, err, logger.Fields{"stage": "chain head"})
			writeJSON(w, statusFor(domain.ErrStoreUnavailable), failure[struct{}](domain.ErrStoreUnavailable))
			return
		}
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logError(r, err, logger.Fields{"stage": "upgrade"})
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := c.backfill(ctx, conn, &lastSent); err != nil {
		logError(r, err, logger.Fields{"stage": "catch-up"})
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-feed:
			if !ok {
				return
			}
			if event.BlockNumber <= lastSent {
				continue
			}
			// Events publish after commit from concurrent requests, so they can
			// arrive out of order. The store holds every block below a
			// committed one.
			if event.BlockNumber > lastSent+1 {
				if err := c.backfill(ctx, conn, &lastSent); err != nil {
					logError(r, err, logger.Fields{"stage": "gap fill", "blockNumber": event.BlockNumber})
					return
				}
				if event.BlockNumber <= lastSent {
					continue
				}
				logger.Warn("ledger feed gap not found in store", logger.Fields{
					"lastSent":    lastSent,
					"blockNumber": event.BlockNumber,
				})
			}
			if err := c.write(conn, event); err != nil {
				logger.Info("ledger feed client gone", logger.Fields{"reason": err.Error()})
				return
			}
			lastSent = event.BlockNumber
		}
	}
}

// backfill sends every stored entry above *lastSent, one page at a time,
// advancing *lastSent as it goes.
func (c *LedgerFeedController) backfill(ctx context.Context, conn *websocket.Conn, lastSent *int64) error {
	for {
		entries, err := c.chain.ListEntries(ctx, *lastSent, feedPageSize)
		if err != nil {
			return fmt.Errorf("list entries after block %d: %w", *lastSent, err)
		}
		for _, entry := range entries {
			if err := c.write(conn, events.NewLedgerEntryCommitted(entry)); err != nil {
				return err
			}
			*lastSent = entry.BlockNumber
		}
		if len(entries) < feedPageSize {
			return nil
		}
	}
}

func (c *LedgerFeedController) write(conn *websocket.Conn, event events.LedgerEntryCommitted) error {
	_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	return conn.WriteJSON(event)
}

// parseAfter returns -1 when the client did not ask for a catch-up.
func parseAfter(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("after")
	if raw == "" {
		return -1, nil
	}
	after, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || after < 0 {
		return 0, strconv.ErrSyntax
	}
	return after, nil
}
