package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product_id is required")
	ErrLineNotFound    = errors.New("product is not in the cart")
)

// Line is one product in a cart. PriceAtAdd is informational only; pricing
// always reads the live catalog.
type Line struct {
	ProductID  string          `json:"product_id" db:"product_id"`
	Quantity   int             `json:"quantity" db:"quantity"`
	PriceAtAdd decimal.Decimal `json:"price_at_add" db:"price_at_add"`
	AddedAt    time.Time       `json:"added_at" db:"added_at"`
}

type Cart struct {
	UserID string `json:"user_id"`
	Lines  []Line `json:"lines"`
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) Line(productID string) (Line, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return Line{}, false
}

// Store persists carts, one per user and at most one line per product.
// Get returns an empty cart for a user that has none.
type Store interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	AddLine(ctx context.Context, userID string, line Line) error
	SetQuantity(ctx context.Context, userID, productID string, qty int) error
	RemoveLine(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
