package query

import (
	"context"
	"time"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/catalog"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/promotion"
	"github.com/example/storefront/internal/domain/wallet"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Handler serves reads straight from the stores, outside any transaction.
type Handler struct {
	repos store.Repositories
	now   func() time.Time
}

func NewHandler(repos store.Repositories) *Handler {
	return &Handler{repos: repos, now: func() time.Time { return time.Now().UTC() }}
}

// Catalog

// ListProducts returns what is on sale, restricted to categoryID when set.
func (h *Handler) ListProducts(ctx context.Context, categoryID string) ([]*ProductView, error) {
	products, err := h.available(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	views := make([]*ProductView, 0, len(products))
	evaluator := promotion.NewEvaluator(h.repos.Promotion)
	now := h.now()
	for _, p := range products {
		v, err := h.view(ctx, evaluator, p, now)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (h *Handler) available(ctx context.Context, categoryID string) ([]*catalog.Product, error) {
	svc := catalog.NewService(h.repos.Catalog)
	if categoryID == "" {
		return svc.ListAvailable(ctx)
	}
	return svc.ListAvailableInCategory(ctx, categoryID)
}

func (h *Handler) GetProduct(ctx context.Context, id string) (*ProductView, error) {
	p, err := catalog.Available(ctx, h.repos.Catalog, id)
	if err != nil {
		return nil, err
	}
	return h.view(ctx, promotion.NewEvaluator(h.repos.Promotion), p, h.now())
}

func (h *Handler) view(ctx context.Context, e *promotion.Evaluator, p *catalog.Product, now time.Time) (*ProductView, error) {
	offer, pct, err := e.BestOffer(ctx, p.ID, p.CategoryID, p.Price, now)
	if err != nil {
		return nil, err
	}
	v := &ProductView{
		Product:            p,
		DiscountPercentage: pct,
		DisplayPrice:       p.Price.Sub(p.Price.Mul(pct).Div(hundred)).Round(2),
	}
	if offer != nil {
		v.OfferID = offer.ID
	}
	return v, nil
}

// ListAllProducts includes unlisted products, for administration.
func (h *Handler) ListAllProducts(ctx context.Context) ([]*catalog.Product, error) {
	return h.repos.Catalog.ListProducts(ctx)
}

func (h *Handler) ListCategories(ctx context.Context) ([]*catalog.Category, error) {
	return catalog.NewService(h.repos.Catalog).ListCategories(ctx)
}

// Promotions

func (h *Handler) ListOffers(ctx context.Context) ([]*promotion.Offer, error) {
	return promotion.NewService(h.repos.Promotion).ListOffers(ctx)
}

func (h *Handler) ListCoupons(ctx context.Context) ([]*promotion.Coupon, error) {
	return promotion.NewService(h.repos.Promotion).ListCoupons(ctx)
}

// Cart

func (h *Handler) GetCart(ctx context.Context, userID string) (*cart.Cart, error) {
	return h.repos.Carts.Get(ctx, userID)
}

// Orders

// GetOrder returns the order if userID owns it. An empty userID reads any
// order.
func (h *Handler) GetOrder(ctx context.Context, orderID, userID string) (*order.Order, error) {
	return order.NewService(h.repos.Orders).Get(ctx, orderID, userID)
}

func (h *Handler) ListOrders(ctx context.Context, userID string) ([]*order.Order, error) {
	return order.NewService(h.repos.Orders).ListByUser(ctx, userID)
}

func (h *Handler) ListAllOrders(ctx context.Context) ([]*order.Order, error) {
	return order.NewService(h.repos.Orders).ListAll(ctx)
}

// Wallet

func (h *Handler) GetWallet(ctx context.Context, userID string) (*wallet.Wallet, error) {
	return wallet.NewService(h.repos.Wallets).Get(ctx, userID)
}
