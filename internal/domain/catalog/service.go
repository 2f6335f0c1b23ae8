package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

// CreateCategory registers a new, active category.
func (s *Service) CreateCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	now := time.Now().UTC()
	c := &Category{
		ID:        uuid.New().String(),
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetCategoryActive lists or unlists a category. Products of an unlisted
// category are not available for sale.
func (s *Service) SetCategoryActive(ctx context.Context, categoryID string, active bool) error {
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	c.Active = active
	c.UpdatedAt = time.Now().UTC()
	return s.store.UpdateCategory(ctx, c)
}

func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, name, description, categoryID string, price decimal.Decimal, stock int) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidStockLevel
	}
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Product{
		ID:            uuid.New().String(),
		Name:          name,
		Description:   description,
		CategoryID:    categoryID,
		Price:         price.Round(2),
		StockQuantity: stock,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProduct changes the descriptive fields and price. Stock only moves
// through Restock and order placement.
func (s *Service) UpdateProduct(ctx context.Context, productID, name, description, categoryID string, price decimal.Decimal) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}

	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if categoryID != "" && categoryID != p.CategoryID {
		if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
			return nil, err
		}
		p.CategoryID = categoryID
	}
	p.Name = name
	p.Description = description
	p.Price = price.Round(2)
	p.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) SetProductActive(ctx context.Context, productID string, active bool) error {
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	p.Active = active
	p.UpdatedAt = time.Now().UTC()
	return s.store.UpdateProduct(ctx, p)
}

// Restock adds units received from a supplier.
func (s *Service) Restock(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return s.store.IncrementStock(ctx, productID, qty)
}

func (s *Service) GetProduct(ctx context.Context, productID string) (*Product, error) {
	return s.store.GetProduct(ctx, productID)
}

// ListAvailable returns the products currently on sale.
func (s *Service) ListAvailable(ctx context.Context) ([]*Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	listed := make(map[string]bool, len(categories))
	for _, c := range categories {
		listed[c.ID] = c.Active
	}

	available := make([]*Product, 0, len(products))
	for _, p := range products {
		if p.Active && listed[p.CategoryID] {
			available = append(available, p)
		}
	}
	return available, nil
}

// ListAvailableInCategory narrows ListAvailable to one listed category.
// An inactive category is reported as missing.
func (s *Service) ListAvailableInCategory(ctx context.Context, categoryID string) ([]*Product, error) {
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, ErrCategoryNotFound
	}
	products, err := s.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	inCategory := products[:0]
	for _, p := range products {
		if p.CategoryID == categoryID {
			inCategory = append(inCategory, p)
		}
	}
	return inCategory, nil
}

// Available loads a product and checks that it can be sold.
func Available(ctx context.Context, s Store, productID string) (*Product, error) {
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, productID)
	}
	c, err := s.GetCategory(ctx, p.CategoryID)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, productID)
	}
	return p, nil
}
