package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Evaluator picks offers and validates coupons against a promotion store.
type Evaluator struct {
	store Store
}

func NewEvaluator(s Store) *Evaluator {
	return &Evaluator{store: s}
}

// BestOffer returns the live offer giving the largest discount on basePrice
// for the product, together with its percentage. Offers never stack. Equal
// discounts resolve to the lowest offer ID. No matching offer is a nil offer
// and a zero percentage, not an error.
func (e *Evaluator) BestOffer(ctx context.Context, productID, categoryID string, basePrice decimal.Decimal, now time.Time) (*Offer, decimal.Decimal, error) {
	offers, err := e.store.FindActiveOffers(ctx, productID, categoryID, now)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("find offers for %s: %w", productID, err)
	}
	best := SelectBest(offers, productID, categoryID, basePrice, now)
	if best == nil {
		return nil, decimal.Zero, nil
	}
	log.Debug().Str("component", "promotion").Str("product_id", productID).Str("offer_id", best.ID).Msg("offer selected")
	return best, best.DiscountPercentage, nil
}

// BestDiscount is BestOffer without the offer.
func (e *Evaluator) BestDiscount(ctx context.Context, productID, categoryID string, basePrice decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	_, pct, err := e.BestOffer(ctx, productID, categoryID, basePrice, now)
	return pct, err
}

// SelectBest is the pure selection rule behind BestOffer.
func SelectBest(offers []*Offer, productID, categoryID string, basePrice decimal.Decimal, now time.Time) *Offer {
	var best *Offer
	var bestAmount decimal.Decimal
	for _, o := range offers {
		if !o.LiveAt(now) || !o.Covers(productID, categoryID) {
			continue
		}
		amount := o.DiscountOn(basePrice)
		switch {
		case best == nil, amount.GreaterThan(bestAmount):
			best, bestAmount = o, amount
		case amount.Equal(bestAmount) && o.ID < best.ID:
			best = o
		}
	}
	return best
}

// ValidateCoupon checks code against the post-offer cart subtotal and returns
// the discount it would grant.
func (e *Evaluator) ValidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (*Discount, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoupon, ErrInvalidCode)
	}
	c, err := e.store.FindCoupon(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, fmt.Errorf("%w: code %s not found", ErrInvalidCoupon, code)
		}
		return nil, err
	}
	if err := c.Check(subtotal, now); err != nil {
		return nil, err
	}
	return &Discount{
		Code:        c.Code,
		Percentage:  c.DiscountPercentage,
		MaxDiscount: c.MaxDiscountAmount,
		Amount:      c.DiscountFor(subtotal),
	}, nil
}

// Check reports why the coupon cannot be used for subtotal at now, if at all.
func (c *Coupon) Check(subtotal decimal.Decimal, now time.Time) error {
	switch {
	case !c.Active:
		return fmt.Errorf("%w: %s is inactive", ErrInvalidCoupon, c.Code)
	case !c.StartsAt.IsZero() && now.Before(c.StartsAt):
		return fmt.Errorf("%w: %s is not valid yet", ErrInvalidCoupon, c.Code)
	case now.After(c.ExpiresAt):
		return fmt.Errorf("%w: %s has expired", ErrInvalidCoupon, c.Code)
	case c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit:
		return fmt.Errorf("%w: %s has been fully redeemed", ErrInvalidCoupon, c.Code)
	case subtotal.LessThan(c.MinPurchaseAmount):
		return fmt.Errorf("%w: %s requires a minimum purchase of %s", ErrInvalidCoupon, c.Code, c.MinPurchaseAmount.StringFixed(2))
	}
	return nil
}

// DiscountFor is min(subtotal * pct / 100, cap), never more than subtotal.
func (c *Coupon) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	amount := subtotal.Mul(c.DiscountPercentage).Div(hundred)
	if c.MaxDiscountAmount.IsPositive() && amount.GreaterThan(c.MaxDiscountAmount) {
		amount = c.MaxDiscountAmount
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	return amount.Round(2)
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
