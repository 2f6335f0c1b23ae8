package command

import (
	"context"
	"testing"
	"time"

	"github.com/example/storefront/internal/domain/catalog"
	"github.com/example/storefront/internal/domain/promotion"
	"github.com/example/storefront/internal/domain/wallet"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/example/storefront/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const gatewaySecret = "mock-gateway-secret"

// testEnv wires a Handler to the in-memory backend, a recording publisher
// and the mock gateway, with the clock frozen at creation time.
type testEnv struct {
	mem      *store.Memory
	pub      *mocks.MockPublisher
	gw       *payment.MockGateway
	h        *Handler
	now      time.Time
	category *catalog.Category
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	pub := mocks.NewMockPublisher()
	mem := store.NewMemory(pub)
	gw := payment.NewMockGateway(gatewaySecret)
	now := time.Now().UTC()

	e := &testEnv{
		mem: mem,
		pub: pub,
		gw:  gw,
		h:   NewHandler(mem, gw, "INR", WithClock(func() time.Time { return now })),
		now: now,
	}
	c, err := e.h.CreateCategory(context.Background(), CreateCategory{Name: "Shoes"})
	require.NoError(t, err)
	e.category = c
	return e
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (e *testEnv) product(t *testing.T, name, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := e.h.CreateProduct(context.Background(), CreateProduct{
		Name:       name,
		CategoryID: e.category.ID,
		Price:      money(price),
		Stock:      stock,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) productOffer(t *testing.T, productID, pct string) *promotion.Offer {
	t.Helper()
	o, err := e.h.CreateOffer(context.Background(), promotion.NewOffer{
		Name:               "Offer on " + productID,
		DiscountPercentage: money(pct),
		Scope:              promotion.ScopeProduct,
		ProductIDs:         []string{productID},
		StartsAt:           e.now.Add(-time.Hour),
		EndsAt:             e.now.Add(time.Hour),
	})
	require.NoError(t, err)
	return o
}

func (e *testEnv) coupon(t *testing.T, code, pct, minPurchase, maxDiscount string, limit int) *promotion.Coupon {
	t.Helper()
	c, err := e.h.CreateCoupon(context.Background(), promotion.NewCoupon{
		Code:               code,
		DiscountPercentage: money(pct),
		MinPurchaseAmount:  money(minPurchase),
		MaxDiscountAmount:  money(maxDiscount),
		StartsAt:           e.now.Add(-time.Hour),
		ExpiresAt:          e.now.Add(24 * time.Hour),
		UsageLimit:         limit,
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) addToCart(t *testing.T, userID, productID string, qty int) {
	t.Helper()
	_, err := e.h.AddToCart(context.Background(), AddToCart{UserID: userID, ProductID: productID, Quantity: qty})
	require.NoError(t, err)
}

func (e *testEnv) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := e.mem.Repositories().Catalog.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.StockQuantity
}

func (e *testEnv) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	w, err := e.mem.Repositories().Wallets.Get(context.Background(), userID)
	if err != nil {
		return decimal.Zero
	}
	return w.Balance
}

func (e *testEnv) fundWallet(t *testing.T, userID, amount string) {
	t.Helper()
	txn := walletTopUp(userID, money(amount), e.now)
	require.NoError(t, e.mem.Repositories().Wallets.Credit(context.Background(), txn))
}

// payOnline opens a gateway order for the cart and pays it.
func (e *testEnv) payOnline(t *testing.T, userID, couponCode string) *PaymentProof {
	t.Helper()
	session, err := e.h.BeginOnlinePayment(context.Background(), userID, couponCode)
	require.NoError(t, err)
	paymentID, signature := e.gw.Pay(session.GatewayOrderID)
	return &PaymentProof{GatewayOrderID: session.GatewayOrderID, PaymentID: paymentID, Signature: signature}
}

func walletTopUp(userID string, amount decimal.Decimal, at time.Time) wallet.Transaction {
	return wallet.Transaction{
		ID:        "topup-" + userID,
		UserID:    userID,
		Amount:    amount,
		Type:      wallet.Credit,
		Reason:    "Top up",
		CreatedAt: at,
	}
}
