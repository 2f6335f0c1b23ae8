package cart

import (
	"context"
	"time"

	"github.com/example/storefront/internal/domain/catalog"
)

type Service struct {
	store    Store
	products catalog.Store
}

func NewService(s Store, products catalog.Store) *Service {
	return &Service{store: s, products: products}
}

func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	return s.store.Get(ctx, userID)
}

// AddItem puts qty units of a product in the cart, merging with an existing
// line. The resulting quantity may not exceed the stock on hand.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := catalog.Available(ctx, s.products, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	wanted := qty
	if existing, ok := c.Line(productID); ok {
		wanted += existing.Quantity
	}
	if wanted > p.StockQuantity {
		return nil, &catalog.InsufficientStockError{ProductID: productID}
	}

	line := Line{
		ProductID:  productID,
		Quantity:   qty,
		PriceAtAdd: p.Price,
		AddedAt:    time.Now().UTC(),
	}
	if err := s.store.AddLine(ctx, userID, line); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, userID)
}

// UpdateQuantity sets the quantity of an existing line. Zero removes it.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	if qty < 0 {
		return nil, ErrInvalidQuantity
	}
	if qty == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	p, err := catalog.Available(ctx, s.products, productID)
	if err != nil {
		return nil, err
	}
	if qty > p.StockQuantity {
		return nil, &catalog.InsufficientStockError{ProductID: productID}
	}
	if err := s.store.SetQuantity(ctx, userID, productID, qty); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	if err := s.store.RemoveLine(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.store.Clear(ctx, userID)
}
