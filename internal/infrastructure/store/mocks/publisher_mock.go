package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/example/storefront/internal/infrastructure/store"
)

// MockPublisher records everything published to it
type MockPublisher struct {
	mu sync.Mutex

	// For tracking calls in tests
	PublishCalls []PublishCall
	PublishErr   error
}

// PublishCall records parameters passed to Publish
type PublishCall struct {
	Key   string
	Event any
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{PublishCalls: make([]PublishCall, 0)}
}

func (m *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCalls = append(m.PublishCalls, PublishCall{Key: key, Event: event})
	return m.PublishErr
}

// EventTypes lists the types of published store events in order.
func (m *MockPublisher) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, 0, len(m.PublishCalls))
	for _, c := range m.PublishCalls {
		if e, ok := c.Event.(store.Event); ok {
			types = append(types, e.EventType)
		}
	}
	return types
}

// Decode unmarshals the payload of the i-th published event into dst.
func (m *MockPublisher) Decode(i int, dst any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.PublishCalls[i].Event.(store.Event)
	return json.Unmarshal(e.Data, dst)
}

// Reset clears recorded calls
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishCalls = make([]PublishCall, 0)
	m.PublishErr = nil
}
