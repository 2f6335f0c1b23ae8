package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/segmentio/kafka-go"
)

// HeaderEventType carries the outbox event type so consumers can route
// without decoding the payload.
const HeaderEventType = "event_type"

// Writer is the part of kafka.Writer the producer needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes committed outbox events to one topic, keyed by
// aggregate id so events of one order stay in partition order.
type Producer struct {
	writer Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return NewProducerWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	})
}

func NewProducerWithWriter(w Writer) *Producer {
	return &Producer{writer: w}
}

func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	}
	switch e := event.(type) {
	case store.Event:
		msg.Headers = []kafka.Header{{Key: HeaderEventType, Value: []byte(e.EventType)}}
	case *store.Event:
		msg.Headers = []kafka.Header{{Key: HeaderEventType, Value: []byte(e.EventType)}}
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
