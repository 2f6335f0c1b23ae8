package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderReturned      = "OrderReturned"
)

type OrderPlaced struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	Lines         []Line          `json:"lines"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        Status          `json:"status"`
	PlacedAt      time.Time       `json:"placed_at"`
}

type OrderStatusChanged struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}

// Refunded is zero when nothing went back to the wallet.
type OrderCancelled struct {
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	Refunded    decimal.Decimal `json:"refunded"`
	Restocked   int             `json:"restocked"`
	CancelledAt time.Time       `json:"cancelled_at"`
}

type OrderReturned struct {
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	Refunded   decimal.Decimal `json:"refunded"`
	Restocked  int             `json:"restocked"`
	ReturnedAt time.Time       `json:"returned_at"`
}
