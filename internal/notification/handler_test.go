package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mail struct {
	to, subject string
}

type mockSender struct {
	sent    []mail
	SendErr error
}

func (m *mockSender) Send(to, subject, _ string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.sent = append(m.sent, mail{to, subject})
	return nil
}

type mockUsers map[string]*user.User

func (m mockUsers) FindByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func newTestHandler() (*Handler, *mockSender) {
	sender := &mockSender{}
	users := mockUsers{"user-1": {ID: "user-1", Email: "ada@example.com"}}
	return NewHandler(email.NewService(sender, "INR"), users), sender
}

func event(t *testing.T, eventType string, data any) store.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return store.Event{ID: "evt-1", AggregateID: "ORD-1", AggregateType: order.AggregateType, EventType: eventType, Data: raw, Timestamp: time.Now()}
}

func TestHandleEvent_SendsPerEventType(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name    string
		event   func(t *testing.T) store.Event
		subject string
	}{
		{"placed", func(t *testing.T) store.Event {
			return event(t, order.EventOrderPlaced, order.OrderPlaced{OrderID: "ORD-1", UserID: "user-1", TotalPrice: decimal.NewFromInt(145), PlacedAt: now})
		}, "Order confirmed: ORD-1"},
		{"cancelled", func(t *testing.T) store.Event {
			return event(t, order.EventOrderCancelled, order.OrderCancelled{OrderID: "ORD-1", UserID: "user-1", Refunded: decimal.NewFromInt(145), CancelledAt: now})
		}, "Order cancelled: ORD-1"},
		{"returned", func(t *testing.T) store.Event {
			return event(t, order.EventOrderReturned, order.OrderReturned{OrderID: "ORD-1", UserID: "user-1", Refunded: decimal.NewFromInt(145), ReturnedAt: now})
		}, "Return processed: ORD-1"},
		{"status changed", func(t *testing.T) store.Event {
			return event(t, order.EventOrderStatusChanged, order.OrderStatusChanged{OrderID: "ORD-1", UserID: "user-1", From: order.StatusPaid, To: order.StatusDelivered, ChangedAt: now})
		}, "Order ORD-1 is now delivered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sender := newTestHandler()
			require.NoError(t, h.HandleEvent(context.Background(), tt.event(t)))
			require.Len(t, sender.sent, 1)
			assert.Equal(t, "ada@example.com", sender.sent[0].to)
			assert.Equal(t, tt.subject, sender.sent[0].subject)
		})
	}
}

func TestHandleEvent_IgnoresOtherEvents(t *testing.T) {
	h, sender := newTestHandler()
	require.NoError(t, h.HandleEvent(context.Background(), event(t, "ProductCreated", map[string]string{"id": "p-1"})))
	assert.Empty(t, sender.sent)
}

func TestHandleEvent_UnknownUserIsDropped(t *testing.T) {
	h, sender := newTestHandler()
	e := event(t, order.EventOrderPlaced, order.OrderPlaced{OrderID: "ORD-1", UserID: "ghost"})
	require.NoError(t, h.HandleEvent(context.Background(), e))
	assert.Empty(t, sender.sent)
}

func TestHandleEvent_Errors(t *testing.T) {
	h, sender := newTestHandler()

	bad := store.Event{EventType: order.EventOrderPlaced, Data: json.RawMessage(`{"order_id":`)}
	assert.Error(t, h.HandleEvent(context.Background(), bad))

	sender.SendErr = errors.New("relay down")
	e := event(t, order.EventOrderPlaced, order.OrderPlaced{OrderID: "ORD-1", UserID: "user-1"})
	assert.EqualError(t, h.HandleEvent(context.Background(), e), "relay down")
}
