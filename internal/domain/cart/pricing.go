package cart

import (
	"context"
	"time"

	"github.com/example/storefront/internal/domain/catalog"
	"github.com/example/storefront/internal/domain/promotion"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type PricedLine struct {
	ProductID           string          `json:"product_id"`
	Name                string          `json:"name"`
	CategoryID          string          `json:"category_id"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	OfferID             string          `json:"offer_id,omitempty"`
	DiscountPercentage  decimal.Decimal `json:"discount_percentage"`
	DiscountedUnitPrice decimal.Decimal `json:"discounted_unit_price"`
	LineTotal           decimal.Decimal `json:"line_total"`
}

// Pricing is a cart valued against the live catalog and offers.
// OriginalPrice is the sum of base prices, Subtotal the sum after offers.
type Pricing struct {
	Lines         []PricedLine    `json:"lines"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// Price values every line at now. Each line gets the single best offer for
// its product. Any unavailable product fails the whole cart.
func Price(ctx context.Context, products catalog.Store, offers *promotion.Evaluator, c *Cart, now time.Time) (*Pricing, error) {
	pr := &Pricing{
		Lines:         make([]PricedLine, 0, len(c.Lines)),
		OriginalPrice: decimal.Zero,
		Subtotal:      decimal.Zero,
	}
	for _, l := range c.Lines {
		p, err := catalog.Available(ctx, products, l.ProductID)
		if err != nil {
			return nil, err
		}

		offer, pct, err := offers.BestOffer(ctx, p.ID, p.CategoryID, p.Price, now)
		if err != nil {
			return nil, err
		}
		discounted := p.Price.Sub(p.Price.Mul(pct).Div(hundred)).Round(2)
		qty := decimal.NewFromInt(int64(l.Quantity))

		line := PricedLine{
			ProductID:           p.ID,
			Name:                p.Name,
			CategoryID:          p.CategoryID,
			Quantity:            l.Quantity,
			UnitPrice:           p.Price,
			DiscountPercentage:  pct,
			DiscountedUnitPrice: discounted,
			LineTotal:           discounted.Mul(qty),
		}
		if offer != nil {
			line.OfferID = offer.ID
		}
		pr.Lines = append(pr.Lines, line)
		pr.OriginalPrice = pr.OriginalPrice.Add(p.Price.Mul(qty))
		pr.Subtotal = pr.Subtotal.Add(line.LineTotal)
	}
	return pr, nil
}
