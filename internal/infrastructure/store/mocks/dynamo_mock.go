package mocks

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// MockDynamo captures PutItem requests
type MockDynamo struct {
	mu sync.Mutex

	PutCalls []*dynamodb.PutItemInput
	PutErr   error
}

func NewMockDynamo() *MockDynamo {
	return &MockDynamo{}
}

func (m *MockDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCalls = append(m.PutCalls, params)
	if m.PutErr != nil {
		return nil, m.PutErr
	}
	return &dynamodb.PutItemOutput{}, nil
}
