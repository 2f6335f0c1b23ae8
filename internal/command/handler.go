package command

import (
	"context"
	"strings"
	"time"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/catalog"
	"github.com/example/storefront/internal/domain/promotion"
	"github.com/example/storefront/internal/domain/wallet"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/payment"
)

const defaultPaymentTimeout = 10 * time.Second

// Handler executes every state-changing operation. Each call runs in its
// own transaction; outbox events go out after commit.
type Handler struct {
	tx             store.TxManager
	gateway        payment.Gateway
	currency       string
	paymentTimeout time.Duration
	now            func() time.Time
}

type Option func(*Handler)

// WithClock replaces the wall clock used for pricing and timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func WithPaymentTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.paymentTimeout = d
		}
	}
}

func NewHandler(tx store.TxManager, gateway payment.Gateway, currency string, opts ...Option) *Handler {
	h := &Handler{
		tx:             tx,
		gateway:        gateway,
		currency:       currency,
		paymentTimeout: defaultPaymentTimeout,
		now:            func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ============================================
// Catalog administration
// ============================================

func (h *Handler) CreateCategory(ctx context.Context, cmd CreateCategory) (*catalog.Category, error) {
	var c *catalog.Category
	err := h.tx.WithinTx(ctx, func(r store.Repositories) error {
		var err error
		c, err = catalog.NewService(r.Catalog).CreateCategory(ctx, cmd.Name)
		return err
	})
	return c, err
}

func (h *Handler) SetCategoryActive(ctx context.Context, categoryID string, active bool) error {
	return h.tx.WithinTx(ctx, func(r store.Repositories) error {
		return catalog.NewService(r.Catalog).SetCategoryActive(ctx, categoryID, active)
	})
}

func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*catalog.Product, error) {
	var p *catalog.Product
	err := h.tx.WithinTx(ctx, func(r store.Repositories) error {
		var err error
		p, err = catalog.NewService(r.Catalog).CreateProduct(ctx, cmd.Name, cmd.Description, cmd.CategoryID, cmd.Price, cmd.Stock)
		return err
	})
	return p, err
}

func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (*catalog.Product, error) {
	var p *catalog.Product
	err := h.tx.WithinTx(ctx, func(r store.Repositories) error {
		var err error
		p, err = catalog.NewService(r.Catalog).UpdateProduct(ctx, cmd.ProductID, cmd.Name, cmd.Description, cmd.CategoryID, cmd.Price)
		return err
	})
	return p, err
}

func (h *Handler) SetProductActive(ctx context.Context, productID string, active bool) error {
	return h.tx.WithinTx(ctx, func(r store.Repositories) error {
		return catalog.NewService(r.Catalog).SetProductActive(ctx, productID, active)
	})
}

func (h *Handler) Restock(ctx context.Context, cmd Restock) error {
	return h.tx.WithinTx(ctx, func(r store.Repositories) error {
		return catalog.NewService(r.Catalog).Restock(ctx, cmd.ProductID, cmd.Quantity)
	})
}

// ============================================
// Promotion administration
// ============================================

func (h *Handler) CreateOffer(ctx context.Context, in promotion.NewOffer) (*promotion.Offer, error) {
	var o *promotion.Offer
	err := h.tx.WithinTx(ctx, func(r store.Repositories) error {
		var err error
		o, err = promotion.NewService(r.Promotion).CreateOffer(ctx, in)
		return err
	})
	return o, err
}

func (h *Handler) DeactivateOffer(ctx context.Context, offerID string) error {
	return h.tx.WithinTx(ctx, func(r store.Repositories) error {
		return promotion.NewService(r.Promotion).DeactivateOffer(ctx, offerID)
	})
}

func (h *Handler) CreateCoupon(ctx context.Context, in promotion.NewCoupon) (*promotion.Coupon, error) {
	var c *promotion.Coupon
	err := h.tx.WithinTx(ctx, func(r store.Repositories) error {
		var err error
		c, err = promotion.NewService(r.Promotion).CreateCoupon(ctx, in)
		return err
	})
	return c, err
}

func (h *Handler) DeactivateCoupon(ctx context.Context, code string) error {
	return h.tx.WithinTx(ctx, func(r store.Repositories) error {
		return promotion.NewService(r.Promotion).DeactivateCoupon(ctx, code)
	})
}

// ============================================
// Cart
// ============================================

func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) (*cart.Cart, error) {
	return h.withCart(ctx, func(s *cart.Service) (*cart.Cart, error) {
		return s.AddItem(ctx, cmd.UserID, cmd.ProductID, cmd.Quantity)
	})
}

func (h *Handler) UpdateCartItem(ctx context.Context, cmd UpdateCartItem) (*cart.Cart, error) {
	return h.withCart(ctx, func(s *cart.Service) (*cart.Cart, error) {
		return s.UpdateQuantity(ctx, cmd.UserID, cmd.ProductID, cmd.Quantity)
	})
}

func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) (*cart.Cart, error) {
	return h.withCart(ctx, func(s *cart.Service) (*cart.Cart, error) {
		return s.RemoveItem(ctx, cmd.UserID, cmd.ProductID)
	})
}

func (h *Handler) ClearCart(ctx context.Context, userID string) error {
	return h.tx.WithinTx(ctx, func(r store.Repositories) error {
		return cart.NewService(r.Carts, r.Catalog).Clear(ctx, userID)
	})
}

func (h *Handler) withCart(ctx context.Context, fn func(s *cart.Service) (*cart.Cart, error)) (*cart.Cart, error) {
	var c *cart.Cart
	err := h.tx.WithinTx(ctx, func(r store.Repositories) error {
		var err error
		c, err = fn(cart.NewService(r.Carts, r.Catalog))
		return err
	})
	return c, err
}

// ============================================
// Wallet administration
// ============================================

func (h *Handler) CreditWallet(ctx context.Context, cmd CreditWallet) (*wallet.Transaction, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = "Manual credit"
	}
	var txn *wallet.Transaction
	err := h.tx.WithinTx(ctx, func(r store.Repositories) error {
		var err error
		txn, err = wallet.NewService(r.Wallets).Credit(ctx, cmd.UserID, cmd.Amount, reason, "")
		return err
	})
	return txn, err
}
