package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the part of the DynamoDB client the sink uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoSink is a Publisher that copies committed outbox events into a
// DynamoDB table. The table streams to Kinesis, which feeds the Lambda
// notifier.
type DynamoSink struct {
	client    DynamoAPI
	tableName string
}

// dynamoEvent is the item layout; the stream adapter reads the same names.
type dynamoEvent struct {
	AggregateID   string `dynamodbav:"aggregate_id"`
	Version       int    `dynamodbav:"version"`
	ID            string `dynamodbav:"id"`
	AggregateType string `dynamodbav:"aggregate_type"`
	EventType     string `dynamodbav:"event_type"`
	Data          string `dynamodbav:"data"`
	CreatedAt     string `dynamodbav:"created_at"`
}

func NewDynamoSink(client DynamoAPI, tableName string) *DynamoSink {
	return &DynamoSink{client: client, tableName: tableName}
}

// Publish writes the event once. Redelivery of the same aggregate version
// is accepted silently.
func (s *DynamoSink) Publish(ctx context.Context, key string, event any) error {
	var e Event
	switch v := event.(type) {
	case Event:
		e = v
	case *Event:
		e = *v
	default:
		return fmt.Errorf("dynamo sink: unsupported event type %T", event)
	}

	av, err := attributevalue.MarshalMap(dynamoEvent{
		AggregateID:   key,
		Version:       e.Version,
		ID:            e.ID,
		AggregateType: e.AggregateType,
		EventType:     e.EventType,
		Data:          string(e.Data),
		CreatedAt:     e.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(aggregate_id) AND attribute_not_exists(version)"),
	})
	var dup *types.ConditionalCheckFailedException
	if errors.As(err, &dup) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to put event: %w", err)
	}
	return nil
}
