package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderPlacedImage(id string) map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"id":             events.NewStringAttribute(id),
		"aggregate_id":   events.NewStringAttribute("ORD-1"),
		"aggregate_type": events.NewStringAttribute("Order"),
		"event_type":     events.NewStringAttribute("OrderPlaced"),
		"data":           events.NewStringAttribute(`{"order_id":"ORD-1"}`),
		"created_at":     events.NewStringAttribute("2026-03-01T10:30:00.123456789Z"),
		"version":        events.NewNumberAttribute("1"),
	}
}

func kinesisRecord(t *testing.T, seq string, change events.DynamoDBEventRecord) events.KinesisEventRecord {
	t.Helper()
	data, err := json.Marshal(change)
	require.NoError(t, err)
	return events.KinesisEventRecord{
		EventID: "shardId-000:" + seq,
		Kinesis: events.KinesisRecord{Data: data, SequenceNumber: seq},
	}
}

func TestFromImage(t *testing.T) {
	e, err := fromImage(orderPlacedImage("evt-1"))
	require.NoError(t, err)
	assert.Equal(t, "evt-1", e.ID)
	assert.Equal(t, "ORD-1", e.AggregateID)
	assert.Equal(t, "Order", e.AggregateType)
	assert.Equal(t, "OrderPlaced", e.EventType)
	assert.JSONEq(t, `{"order_id":"ORD-1"}`, string(e.Data))
	assert.Equal(t, 1, e.Version)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 123456789, time.UTC), e.Timestamp)
}

func TestFromImage_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]events.DynamoDBAttributeValue)
	}{
		{"nil image", nil},
		{"missing id", func(img map[string]events.DynamoDBAttributeValue) { delete(img, "id") }},
		{"numeric event type", func(img map[string]events.DynamoDBAttributeValue) {
			img["event_type"] = events.NewNumberAttribute("7")
		}},
		{"bad data", func(img map[string]events.DynamoDBAttributeValue) {
			img["data"] = events.NewStringAttribute("{not json")
		}},
		{"bad timestamp", func(img map[string]events.DynamoDBAttributeValue) {
			img["created_at"] = events.NewStringAttribute("yesterday")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var img map[string]events.DynamoDBAttributeValue
			if tt.mutate != nil {
				img = orderPlacedImage("evt-1")
				tt.mutate(img)
			}
			_, err := fromImage(img)
			assert.Error(t, err)
		})
	}
}

func TestDecodeChange_OnlyInserts(t *testing.T) {
	for _, name := range []string{"MODIFY", "REMOVE"} {
		e, err := DecodeChange(events.DynamoDBEventRecord{EventName: name})
		require.NoError(t, err)
		assert.Nil(t, e, name)
	}

	e, err := DecodeChange(events.DynamoDBEventRecord{
		EventName: "INSERT",
		Change:    events.DynamoDBStreamRecord{NewImage: orderPlacedImage("evt-9")},
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-9", e.ID)
}

func TestHandleBatch(t *testing.T) {
	batch := events.KinesisEvent{Records: []events.KinesisEventRecord{
		kinesisRecord(t, "1", events.DynamoDBEventRecord{
			EventName: "INSERT",
			Change:    events.DynamoDBStreamRecord{NewImage: orderPlacedImage("evt-1")},
		}),
		kinesisRecord(t, "2", events.DynamoDBEventRecord{EventName: "MODIFY"}),
		{Kinesis: events.KinesisRecord{Data: []byte("invalid json"), SequenceNumber: "3"}},
		kinesisRecord(t, "4", events.DynamoDBEventRecord{
			EventName: "INSERT",
			Change:    events.DynamoDBStreamRecord{NewImage: orderPlacedImage("evt-4")},
		}),
	}}

	var handled []string
	resp := HandleBatch(context.Background(), batch, func(_ context.Context, e store.Event) error {
		handled = append(handled, e.ID)
		if e.ID == "evt-4" {
			return errors.New("smtp down")
		}
		return nil
	})

	assert.Equal(t, []string{"evt-1", "evt-4"}, handled)
	require.Len(t, resp.BatchItemFailures, 2)
	assert.Equal(t, "3", resp.BatchItemFailures[0].ItemIdentifier)
	assert.Equal(t, "4", resp.BatchItemFailures[1].ItemIdentifier)
}
