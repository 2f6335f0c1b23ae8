package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const AggregateType = "Order"

type Status string

const (
	StatusPending       Status = "pending"
	StatusPaid          Status = "paid"
	StatusPaymentFailed Status = "payment_failed"
	StatusDelivered     Status = "delivered"
	StatusCancelled     Status = "cancelled"
	StatusReturned      Status = "returned"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
	PaymentWallet PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentOnline, PaymentWallet:
		return true
	}
	return false
}

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrEmptyOrder            = errors.New("order must have at least one item")
	ErrInvalidTransition     = errors.New("invalid order status transition")
	ErrPriceMismatch         = errors.New("order total does not match the current price")
	ErrForbidden             = errors.New("order belongs to another user")
	ErrInvalidPaymentMethod  = errors.New("unsupported payment method")
	ErrMissingPaymentDetails = errors.New("online payment requires gateway order, payment id and signature")
	ErrInvalidStatus         = errors.New("unknown order status")
	ErrDuplicateOrder        = errors.New("an order already exists for this idempotency key")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:       {StatusPaid, StatusPaymentFailed, StatusCancelled},
	StatusPaid:          {StatusDelivered, StatusCancelled, StatusReturned},
	StatusDelivered:     {StatusReturned},
	StatusPaymentFailed: {}, // terminal state
	StatusCancelled:     {}, // terminal state
	StatusReturned:      {}, // terminal state
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := validTransitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	return slices.Contains(validTransitions[o.Status], target)
}

// updateLocked are states an admin status update cannot leave. A delivered
// order only moves again through a customer return.
var updateLocked = map[Status]bool{StatusDelivered: true}

// CanUpdateTo is CanTransitionTo for admin status updates.
func (o *Order) CanUpdateTo(target Status) bool {
	return !updateLocked[o.Status] && o.CanTransitionTo(target)
}

// TransitionError describes why the order cannot move to target.
func (o *Order) TransitionError(target Status) error {
	if o.Status.Terminal() {
		return fmt.Errorf("%w: order %s is already %s", ErrInvalidTransition, o.ID, o.Status)
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, o.Status, target)
}

type Line struct {
	ProductID           string          `json:"product_id"`
	Name                string          `json:"name"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	DiscountedUnitPrice decimal.Decimal `json:"discounted_unit_price"`
}

type PaymentReference struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature,omitempty"`
}

// Order is a placed order. Lines and amounts never change after creation;
// only Status moves, along validTransitions.
type Order struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Lines             []Line            `json:"lines"`
	OriginalPrice     decimal.Decimal   `json:"original_price"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	CouponCode        string            `json:"coupon_code,omitempty"`
	CouponDiscount    decimal.Decimal   `json:"coupon_discount"`
	TotalPrice        decimal.Decimal   `json:"total_price"`
	ShippingAddressID string            `json:"shipping_address_id"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	Payment           *PaymentReference `json:"payment,omitempty"`
	IdempotencyKey    string            `json:"idempotency_key,omitempty"`
	Status            Status            `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// NewID returns a sortable, human-readable order number.
func NewID() string {
	return "ORD-" + ulid.Make().String()
}

// Store persists orders. UpdateStatus only writes when the stored status
// still equals expected and reports whether it did.
type Store interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)
	UpdateStatus(ctx context.Context, id string, expected, next Status, at time.Time) (bool, error)
}
