package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// MockGateway is an in-process gateway for local runs and tests. It signs
// with a shared secret, so clients can produce valid signatures with Sign.
type MockGateway struct {
	mu     sync.Mutex
	secret string
	orders map[string]Order

	CreateErr error
}

func NewMockGateway(secret string) *MockGateway {
	return &MockGateway{
		secret: secret,
		orders: make(map[string]Order),
	}
}

func (m *MockGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (string, error) {
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if !amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	id := "order_" + uuid.New().String()[:14]
	m.mu.Lock()
	m.orders[id] = Order{ID: id, Amount: amount, Currency: currency, Receipt: receipt}
	m.mu.Unlock()

	log.Debug().Str("component", "payment").Str("gateway_order_id", id).Str("amount", amount.StringFixed(2)).Str("currency", currency).Msg("mock gateway order created")
	return id, nil
}

func (m *MockGateway) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	return verify(m.secret, gatewayOrderID, paymentID, signature)
}

func (m *MockGateway) FetchOrder(ctx context.Context, gatewayOrderID string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[gatewayOrderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, gatewayOrderID)
	}
	return &o, nil
}

// Amount returns what the order was opened for.
func (m *MockGateway) Amount(gatewayOrderID string) (decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[gatewayOrderID]
	return o.Amount, ok
}

// Pay simulates the client completing payment and returns the payment id
// and signature it would send back.
func (m *MockGateway) Pay(gatewayOrderID string) (paymentID, signature string) {
	paymentID = "pay_" + uuid.New().String()[:14]
	return paymentID, Sign(m.secret, gatewayOrderID, paymentID)
}
