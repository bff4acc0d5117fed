package events

import (
	"context"
	"sync"

	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/logger"
)

// Hub fans committed entries out to in-process subscribers. A subscriber
// whose buffer is full misses the event rather than stalling the ledger.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan LedgerEntryCommitted]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan LedgerEntryCommitted]struct{})}
}

// Subscribe returns a channel of events and a function that releases it.
func (h *Hub) Subscribe(buffer int) (<-chan LedgerEntryCommitted, func()) {
	ch := make(chan LedgerEntryCommitted, buffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) PublishEntry(ctx context.Context, entry domain.LedgerEntry) error {
	event := NewLedgerEntryCommitted(entry)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			logger.Warn("ledger hub dropped event for slow subscriber", logger.Fields{
				"blockNumber": entry.BlockNumber,
			})
		}
	}
	return nil
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
