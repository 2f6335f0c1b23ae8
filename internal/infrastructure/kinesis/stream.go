// Package kinesis decodes outbox events that reach Lambda through the
// DynamoDB table's Kinesis stream.
package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/rs/zerolog/log"
)

var ErrIncompleteImage = errors.New("stream image is missing required attributes")

// DecodeRecord unwraps the DynamoDB change carried by a Kinesis record.
// Only inserts carry new outbox events; anything else yields (nil, nil).
func DecodeRecord(record events.KinesisEventRecord) (*store.Event, error) {
	var change events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &change); err != nil {
		return nil, fmt.Errorf("failed to decode change record: %w", err)
	}
	return DecodeChange(change)
}

func DecodeChange(change events.DynamoDBEventRecord) (*store.Event, error) {
	if events.DynamoDBOperationType(change.EventName) != events.DynamoDBOperationTypeInsert {
		return nil, nil
	}
	return fromImage(change.Change.NewImage)
}

func fromImage(image map[string]events.DynamoDBAttributeValue) (*store.Event, error) {
	str := func(name string) string {
		v, ok := image[name]
		if !ok || v.DataType() != events.DataTypeString {
			return ""
		}
		return v.String()
	}

	e := &store.Event{
		ID:            str("id"),
		AggregateID:   str("aggregate_id"),
		AggregateType: str("aggregate_type"),
		EventType:     str("event_type"),
		Data:          json.RawMessage(str("data")),
	}
	if e.ID == "" || e.AggregateID == "" || e.EventType == "" {
		return nil, fmt.Errorf("%w: id=%q aggregate_id=%q event_type=%q", ErrIncompleteImage, e.ID, e.AggregateID, e.EventType)
	}
	if !json.Valid(e.Data) {
		return nil, fmt.Errorf("event %s: data is not valid JSON", e.ID)
	}

	if ts := str("created_at"); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("event %s: bad created_at: %w", e.ID, err)
		}
		e.Timestamp = t
	}
	if v, ok := image["version"]; ok {
		n, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("event %s: bad version: %w", e.ID, err)
		}
		e.Version = int(n)
	}
	return e, nil
}

// HandleBatch decodes every record of a Lambda invocation and passes each
// event to handle. Records that fail to decode or to handle come back as
// batch item failures keyed by sequence number so Lambda retries only those.
func HandleBatch(ctx context.Context, batch events.KinesisEvent, handle func(context.Context, store.Event) error) events.KinesisEventResponse {
	var failures []events.KinesisBatchItemFailure
	for _, record := range batch.Records {
		seq := record.Kinesis.SequenceNumber
		e, err := DecodeRecord(record)
		if err != nil {
			log.Error().Err(err).Str("component", "kinesis").Str("sequence_number", seq).Msg("failed to decode record")
			failures = append(failures, events.KinesisBatchItemFailure{ItemIdentifier: seq})
			continue
		}
		if e == nil {
			continue
		}
		if err := handle(ctx, *e); err != nil {
			log.Error().Err(err).Str("component", "kinesis").Str("event_id", e.ID).Str("event_type", e.EventType).Msg("failed to handle event")
			failures = append(failures, events.KinesisBatchItemFailure{ItemIdentifier: seq})
		}
	}
	return events.KinesisEventResponse{BatchItemFailures: failures}
}
