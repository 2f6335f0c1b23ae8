package query

import (
	"github.com/example/storefront/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductView is a product as the storefront shows it: the base price and
// what it costs right now after the best live offer.
type ProductView struct {
	*catalog.Product
	OfferID            string          `json:"offer_id,omitempty"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DisplayPrice       decimal.Decimal `json:"display_price"`
}
