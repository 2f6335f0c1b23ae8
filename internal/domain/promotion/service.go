package promotion

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service manages offers and coupons.
type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

type NewOffer struct {
	Name               string          `json:"name"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Scope              Scope           `json:"scope"`
	ProductIDs         []string        `json:"product_ids"`
	CategoryIDs        []string        `json:"category_ids"`
	StartsAt           time.Time       `json:"starts_at"`
	EndsAt             time.Time       `json:"ends_at"`
}

type NewCoupon struct {
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	MinPurchaseAmount  decimal.Decimal `json:"min_purchase_amount"`
	MaxDiscountAmount  decimal.Decimal `json:"max_discount_amount"`
	StartsAt           time.Time       `json:"starts_at"`
	ExpiresAt          time.Time       `json:"expires_at"`
	UsageLimit         int             `json:"usage_limit"`
}

func validPercentage(pct decimal.Decimal) bool {
	return !pct.IsNegative() && !pct.GreaterThan(hundred)
}

func (s *Service) CreateOffer(ctx context.Context, in NewOffer) (*Offer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrInvalidOfferName
	}
	if !validPercentage(in.DiscountPercentage) {
		return nil, ErrInvalidPercentage
	}
	if !in.StartsAt.Before(in.EndsAt) {
		return nil, ErrInvalidWindow
	}
	switch in.Scope {
	case ScopeProduct:
		if len(in.ProductIDs) == 0 {
			return nil, ErrInvalidScope
		}
	case ScopeCategory:
		if len(in.CategoryIDs) == 0 {
			return nil, ErrInvalidScope
		}
	default:
		return nil, ErrInvalidScope
	}

	now := time.Now().UTC()
	o := &Offer{
		ID:                 uuid.New().String(),
		Name:               strings.TrimSpace(in.Name),
		DiscountPercentage: in.DiscountPercentage,
		Scope:              in.Scope,
		ProductIDs:         in.ProductIDs,
		CategoryIDs:        in.CategoryIDs,
		StartsAt:           in.StartsAt.UTC(),
		EndsAt:             in.EndsAt.UTC(),
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateOffer(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) DeactivateOffer(ctx context.Context, offerID string) error {
	o, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return err
	}
	o.Active = false
	o.UpdatedAt = time.Now().UTC()
	return s.store.UpdateOffer(ctx, o)
}

func (s *Service) ListOffers(ctx context.Context) ([]*Offer, error) {
	return s.store.ListOffers(ctx)
}

// CreateCoupon stores a coupon under its upper-cased code. StartsAt
// defaults to the creation time.
func (s *Service) CreateCoupon(ctx context.Context, in NewCoupon) (*Coupon, error) {
	code := NormalizeCode(in.Code)
	if code == "" {
		return nil, ErrInvalidCode
	}
	if !validPercentage(in.DiscountPercentage) {
		return nil, ErrInvalidPercentage
	}
	if in.MinPurchaseAmount.IsNegative() || in.MaxDiscountAmount.IsNegative() || in.UsageLimit < 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	startsAt := in.StartsAt
	if startsAt.IsZero() {
		startsAt = now
	}
	if !startsAt.Before(in.ExpiresAt) {
		return nil, ErrInvalidWindow
	}

	c := &Coupon{
		ID:                 uuid.New().String(),
		Code:               code,
		DiscountPercentage: in.DiscountPercentage,
		MinPurchaseAmount:  in.MinPurchaseAmount.Round(2),
		MaxDiscountAmount:  in.MaxDiscountAmount.Round(2),
		StartsAt:           startsAt.UTC(),
		ExpiresAt:          in.ExpiresAt.UTC(),
		UsageLimit:         in.UsageLimit,
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateCoupon(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) DeactivateCoupon(ctx context.Context, code string) error {
	c, err := s.store.FindCoupon(ctx, NormalizeCode(code))
	if err != nil {
		return err
	}
	c.Active = false
	c.UpdatedAt = time.Now().UTC()
	return s.store.UpdateCoupon(ctx, c)
}

func (s *Service) ListCoupons(ctx context.Context) ([]*Coupon, error) {
	return s.store.ListCoupons(ctx)
}
