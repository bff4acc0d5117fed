package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codexac/coin-ledger/src/internal/domain"
	"github.com/codexac/coin-ledger/src/internal/logger"
	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// PublishEntry writes the entry keyed by its transaction hash.
func (p *KafkaPublisher) PublishEntry(ctx context.Context, entry domain.LedgerEntry) error {
	event := NewLedgerEntryCommitted(entry)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.TransactionHash),
		Value: data,
	}); err != nil {
		return fmt.Errorf("write ledger event: %w", err)
	}

	logger.Info("kafka publisher ledger event written", logger.Fields{
		"eventId":     event.EventID,
		"topic":       p.writer.Topic,
		"blockNumber": entry.BlockNumber,
	})
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
