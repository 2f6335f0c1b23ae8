package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamoSink_Publish(t *testing.T) {
	client := mocks.NewMockDynamo()
	sink := store.NewDynamoSink(client, "events")
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	err := sink.Publish(context.Background(), "ORD-1", store.Event{
		ID:            "evt-1",
		AggregateID:   "ORD-1",
		AggregateType: "Order",
		EventType:     "OrderPlaced",
		Data:          json.RawMessage(`{"order_id":"ORD-1"}`),
		Timestamp:     ts,
		Version:       1,
	})

	require.NoError(t, err)
	require.Len(t, client.PutCalls, 1)
	put := client.PutCalls[0]
	assert.Equal(t, "events", *put.TableName)
	assert.Contains(t, *put.ConditionExpression, "attribute_not_exists")

	var item map[string]any
	require.NoError(t, attributevalue.UnmarshalMap(put.Item, &item))
	assert.Equal(t, "ORD-1", item["aggregate_id"])
	assert.Equal(t, "OrderPlaced", item["event_type"])
	assert.Equal(t, `{"order_id":"ORD-1"}`, item["data"])
	assert.Equal(t, "2024-01-15T10:30:00Z", item["created_at"])
	assert.EqualValues(t, 1, item["version"])
}

func TestDynamoSink_Publish_DuplicateIsIgnored(t *testing.T) {
	client := mocks.NewMockDynamo()
	client.PutErr = &types.ConditionalCheckFailedException{}
	sink := store.NewDynamoSink(client, "events")

	err := sink.Publish(context.Background(), "ORD-1", &store.Event{ID: "evt-1", Version: 1})
	assert.NoError(t, err)
}

func TestDynamoSink_Publish_Errors(t *testing.T) {
	client := mocks.NewMockDynamo()
	client.PutErr = errors.New("throttled")
	sink := store.NewDynamoSink(client, "events")

	err := sink.Publish(context.Background(), "ORD-1", store.Event{ID: "evt-1"})
	assert.ErrorContains(t, err, "throttled")

	err = sink.Publish(context.Background(), "ORD-1", "not an event")
	assert.ErrorContains(t, err, "unsupported event type")
}
