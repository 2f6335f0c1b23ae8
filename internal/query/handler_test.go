package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/storefront/internal/domain/catalog"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/promotion"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueryHandler(t *testing.T) (*Handler, store.Repositories, *catalog.Category) {
	t.Helper()
	repos := store.NewMemory(nil).Repositories()
	c, err := catalog.NewService(repos.Catalog).CreateCategory(context.Background(), "Shoes")
	require.NoError(t, err)
	return NewHandler(repos), repos, c
}

// ============================================
// Product Query Tests
// ============================================

func TestHandler_ListProducts_ShowsOfferPrice(t *testing.T) {
	h, repos, cat := newTestQueryHandler(t)
	ctx := context.Background()
	products := catalog.NewService(repos.Catalog)
	runner, err := products.CreateProduct(ctx, "Runner", "", cat.ID, decimal.NewFromInt(100), 5)
	require.NoError(t, err)
	hidden, err := products.CreateProduct(ctx, "Hidden", "", cat.ID, decimal.NewFromInt(10), 5)
	require.NoError(t, err)
	require.NoError(t, products.SetProductActive(ctx, hidden.ID, false))

	now := time.Now().UTC()
	offer, err := promotion.NewService(repos.Promotion).CreateOffer(ctx, promotion.NewOffer{
		Name:               "Shoe week",
		DiscountPercentage: decimal.NewFromInt(25),
		Scope:              promotion.ScopeCategory,
		CategoryIDs:        []string{cat.ID},
		StartsAt:           now.Add(-time.Hour),
		EndsAt:             now.Add(time.Hour),
	})
	require.NoError(t, err)

	views, err := h.ListProducts(ctx, "")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, runner.ID, views[0].ID)
	assert.Equal(t, offer.ID, views[0].OfferID)
	assert.Equal(t, "75.00", views[0].DisplayPrice.StringFixed(2))

	all, err := h.ListAllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = h.GetProduct(ctx, hidden.ID)
	assert.ErrorIs(t, err, catalog.ErrProductUnavailable)
}

func TestHandler_ListProducts_ByCategory(t *testing.T) {
	h, repos, shoes := newTestQueryHandler(t)
	ctx := context.Background()
	products := catalog.NewService(repos.Catalog)
	socks, err := products.CreateCategory(ctx, "Socks")
	require.NoError(t, err)
	runner, err := products.CreateProduct(ctx, "Runner", "", shoes.ID, decimal.NewFromInt(100), 5)
	require.NoError(t, err)
	_, err = products.CreateProduct(ctx, "Ankle", "", socks.ID, decimal.NewFromInt(5), 50)
	require.NoError(t, err)

	views, err := h.ListProducts(ctx, shoes.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, runner.ID, views[0].ID)

	all, err := h.ListProducts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = h.ListProducts(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)

	require.NoError(t, products.SetCategoryActive(ctx, socks.ID, false))
	_, err = h.ListProducts(ctx, socks.ID)
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
}

func TestHandler_ListProducts_OfferLookupFailure(t *testing.T) {
	mem := store.NewMemory(nil)
	h := NewHandler(mem.Repositories())
	ctx := context.Background()
	products := catalog.NewService(mem.Repositories().Catalog)
	c, err := products.CreateCategory(ctx, "Shoes")
	require.NoError(t, err)
	_, err = products.CreateProduct(ctx, "Runner", "", c.ID, decimal.NewFromInt(100), 5)
	require.NoError(t, err)
	boom := errors.New("connection reset")
	mem.FailOn("promotion.find_active_offers", boom)

	_, err = h.ListProducts(ctx, "")
	assert.ErrorIs(t, err, boom)
}

func TestHandler_GetProduct_NoOffer(t *testing.T) {
	h, repos, cat := newTestQueryHandler(t)
	ctx := context.Background()
	p, err := catalog.NewService(repos.Catalog).CreateProduct(ctx, "Runner", "", cat.ID, decimal.NewFromInt(100), 5)
	require.NoError(t, err)

	v, err := h.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, v.OfferID)
	assert.True(t, v.DisplayPrice.Equal(p.Price))

	_, err = h.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

// ============================================
// Order and Wallet Query Tests
// ============================================

func TestHandler_Orders(t *testing.T) {
	h, repos, _ := newTestQueryHandler(t)
	ctx := context.Background()
	base := time.Now().UTC()
	for i, userID := range []string{"user-1", "user-1", "user-2"} {
		require.NoError(t, repos.Orders.Create(ctx, &order.Order{
			ID:        order.NewID(),
			UserID:    userID,
			Status:    order.StatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	mine, err := h.ListOrders(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.True(t, mine[0].CreatedAt.After(mine[1].CreatedAt))

	all, err := h.ListAllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = h.GetOrder(ctx, mine[0].ID, "user-2")
	assert.ErrorIs(t, err, order.ErrForbidden)
}

func TestHandler_GetWallet_Empty(t *testing.T) {
	h, _, _ := newTestQueryHandler(t)

	w, err := h.GetWallet(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
}

func TestHandler_GetCart_Empty(t *testing.T) {
	h, _, _ := newTestQueryHandler(t)

	c, err := h.GetCart(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}
