package promotion

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrOfferNotFound     = errors.New("offer not found")
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrInvalidCoupon     = errors.New("invalid coupon")
	ErrDuplicateCoupon   = errors.New("coupon code already exists")
	ErrInvalidPercentage = errors.New("discount percentage must be between 0 and 100")
	ErrInvalidWindow     = errors.New("offer must start before it ends")
	ErrInvalidScope      = errors.New("offer scope must target at least one product or category")
	ErrInvalidAmount     = errors.New("amount must not be negative")
	ErrInvalidCode       = errors.New("coupon code is required")
	ErrInvalidOfferName  = errors.New("offer name is required")
)

var hundred = decimal.NewFromInt(100)

type Scope string

const (
	ScopeProduct  Scope = "product"
	ScopeCategory Scope = "category"
)

// Offer is a time-bounded percentage discount on a set of products or categories.
type Offer struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Scope              Scope           `json:"scope"`
	ProductIDs         []string        `json:"product_ids,omitempty"`
	CategoryIDs        []string        `json:"category_ids,omitempty"`
	StartsAt           time.Time       `json:"starts_at"`
	EndsAt             time.Time       `json:"ends_at"`
	Active             bool            `json:"active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// LiveAt reports whether the offer is switched on and inside its window (inclusive).
func (o *Offer) LiveAt(now time.Time) bool {
	return o.Active && !now.Before(o.StartsAt) && !now.After(o.EndsAt)
}

func (o *Offer) Covers(productID, categoryID string) bool {
	switch o.Scope {
	case ScopeProduct:
		return slices.Contains(o.ProductIDs, productID)
	case ScopeCategory:
		return categoryID != "" && slices.Contains(o.CategoryIDs, categoryID)
	}
	return false
}

// DiscountOn is the amount the offer takes off basePrice.
func (o *Offer) DiscountOn(basePrice decimal.Decimal) decimal.Decimal {
	return basePrice.Mul(o.DiscountPercentage).Div(hundred)
}

// Coupon is a user-entered code granting a capped percentage discount on the
// cart subtotal. A zero MaxDiscountAmount means uncapped and a zero
// UsageLimit means unlimited redemptions.
type Coupon struct {
	ID                 string          `json:"id"`
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	MinPurchaseAmount  decimal.Decimal `json:"min_purchase_amount"`
	MaxDiscountAmount  decimal.Decimal `json:"max_discount_amount"`
	StartsAt           time.Time       `json:"starts_at"`
	ExpiresAt          time.Time       `json:"expires_at"`
	UsageLimit         int             `json:"usage_limit"`
	UsedCount          int             `json:"used_count"`
	Active             bool            `json:"active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Discount is the outcome of a successful coupon validation.
type Discount struct {
	Code        string          `json:"code"`
	Percentage  decimal.Decimal `json:"percentage"`
	MaxDiscount decimal.Decimal `json:"max_discount"`
	Amount      decimal.Decimal `json:"amount"`
}

// Store is the persistence contract for offers and coupons.
// RedeemCoupon increments the usage count only while it is below the limit
// and reports whether it did.
type Store interface {
	FindActiveOffers(ctx context.Context, productID, categoryID string, now time.Time) ([]*Offer, error)
	ListOffers(ctx context.Context) ([]*Offer, error)
	GetOffer(ctx context.Context, id string) (*Offer, error)
	CreateOffer(ctx context.Context, o *Offer) error
	UpdateOffer(ctx context.Context, o *Offer) error

	FindCoupon(ctx context.Context, code string) (*Coupon, error)
	ListCoupons(ctx context.Context) ([]*Coupon, error)
	CreateCoupon(ctx context.Context, c *Coupon) error
	UpdateCoupon(ctx context.Context, c *Coupon) error
	RedeemCoupon(ctx context.Context, code string) (bool, error)
}
