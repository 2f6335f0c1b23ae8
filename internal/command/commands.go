package command

import (
	"github.com/example/storefront/internal/domain/order"
	"github.com/shopspring/decimal"
)

// Catalog commands

type CreateCategory struct {
	Name string `json:"name"`
}

type CreateProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CategoryID  string          `json:"category_id"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

type UpdateProduct struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CategoryID  string          `json:"category_id"`
	Price       decimal.Decimal `json:"price"`
}

type Restock struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart commands

type AddToCart struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItem struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCart struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
}

// Order commands

// PaymentProof is what the client receives from the gateway after paying.
type PaymentProof struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
}

// PlaceOrder turns the user's cart into an order. ClientTotal, when set, is
// the total the client displayed; placement fails if the server total is
// higher. For online payments the gateway order id doubles as the
// idempotency key.
type PlaceOrder struct {
	UserID            string              `json:"user_id"`
	ShippingAddressID string              `json:"shipping_address_id"`
	PaymentMethod     order.PaymentMethod `json:"payment_method"`
	CouponCode        string              `json:"coupon_code,omitempty"`
	ClientTotal       *decimal.Decimal    `json:"client_total,omitempty"`
	IdempotencyKey    string              `json:"idempotency_key,omitempty"`
	Payment           *PaymentProof       `json:"payment,omitempty"`
}

// Actor is who is asking for a fulfillment change.
type Actor struct {
	UserID string
	Admin  bool
}

// Wallet commands

// CreditWallet is a manual credit by an administrator, e.g. a goodwill
// refund outside the order flow.
type CreditWallet struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}
