package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// EventHandler receives one decoded outbox event.
type EventHandler func(ctx context.Context, e store.Event) error

// Reader is the part of kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return NewConsumerWithReader(kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	}))
}

func NewConsumerWithReader(r Reader) *Consumer {
	return &Consumer{reader: r}
}

// Consume hands every message to handler until ctx is done. A message is
// committed after its handler returns; handler errors and undecodable
// payloads are logged and skipped.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return err
			}
			log.Warn().Err(err).Str("component", "kafka_consumer").Msg("failed to fetch message")
			continue
		}

		var e store.Event
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			log.Error().Err(err).
				Str("component", "kafka_consumer").
				Int64("offset", msg.Offset).
				Msg("dropping undecodable message")
		} else if err := handler(ctx, e); err != nil {
			log.Error().Err(err).
				Str("component", "kafka_consumer").
				Str("event_type", e.EventType).
				Str("aggregate_id", e.AggregateID).
				Msg("event handler failed")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("component", "kafka_consumer").Msg("failed to commit offset")
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
