package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event is one outbox record. Version counts events per aggregate from 1.
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// EventLog is the transactional outbox. Events appended inside a
// transaction are kept only if it commits and are published afterwards.
type EventLog interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
}

// Publisher delivers committed events to the outside world.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

func newEvent(aggregateID, aggregateType, eventType string, data any, version int) (Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now().UTC(),
		Version:       version,
	}, nil
}

// dispatch publishes committed events keyed by aggregate. Delivery is best
// effort: a failing publisher is logged and never undoes the commit.
func dispatch(ctx context.Context, pub Publisher, events []Event) {
	if pub == nil {
		return
	}
	for _, e := range events {
		if err := pub.Publish(ctx, e.AggregateID, e); err != nil {
			log.Error().Err(err).
				Str("component", "outbox").
				Str("event_type", e.EventType).
				Str("aggregate_id", e.AggregateID).
				Msg("failed to publish event")
		}
	}
}
