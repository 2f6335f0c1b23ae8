package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	messages []kafka.Message
	writeErr error
	closed   bool
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

// mockReader replays queued messages, then reports io.EOF.
type mockReader struct {
	queue     []kafka.Message
	committed []int64
}

func (m *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(m.queue) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := m.queue[0]
	m.queue = m.queue[1:]
	return msg, nil
}

func (m *mockReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		m.committed = append(m.committed, msg.Offset)
	}
	return nil
}

func (m *mockReader) Close() error { return nil }

func testEvent(eventType string) store.Event {
	return store.Event{
		ID:            "evt-1",
		AggregateID:   "ORD-1",
		AggregateType: "Order",
		EventType:     eventType,
		Data:          json.RawMessage(`{"order_id":"ORD-1"}`),
		Timestamp:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Version:       1,
	}
}

// ============================================
// Producer Tests
// ============================================

func TestProducer_Publish(t *testing.T) {
	w := &mockWriter{}
	p := NewProducerWithWriter(w)

	require.NoError(t, p.Publish(context.Background(), "ORD-1", testEvent("OrderPlaced")))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "ORD-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, HeaderEventType, msg.Headers[0].Key)
	assert.Equal(t, "OrderPlaced", string(msg.Headers[0].Value))

	var decoded store.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "evt-1", decoded.ID)
	assert.JSONEq(t, `{"order_id":"ORD-1"}`, string(decoded.Data))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_Publish_WriteError(t *testing.T) {
	w := &mockWriter{writeErr: errors.New("broker down")}
	p := NewProducerWithWriter(w)

	err := p.Publish(context.Background(), "ORD-1", testEvent("OrderPlaced"))
	assert.EqualError(t, err, "broker down")
}

// ============================================
// Consumer Tests
// ============================================

func TestConsumer_Consume(t *testing.T) {
	good, err := json.Marshal(testEvent("OrderCancelled"))
	require.NoError(t, err)
	r := &mockReader{queue: []kafka.Message{
		{Offset: 1, Value: good},
		{Offset: 2, Value: []byte("not json")},
		{Offset: 3, Value: good},
	}}
	c := NewConsumerWithReader(r)

	var seen []string
	calls := 0
	err = c.Consume(context.Background(), func(ctx context.Context, e store.Event) error {
		calls++
		seen = append(seen, e.EventType)
		if calls == 2 {
			return errors.New("smtp down")
		}
		return nil
	})

	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"OrderCancelled", "OrderCancelled"}, seen)
	assert.Equal(t, []int64{1, 2, 3}, r.committed)
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConsumerWithReader(&blockingReader{})

	err := c.Consume(ctx, func(context.Context, store.Event) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

type blockingReader struct{ mockReader }

func (b *blockingReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}
