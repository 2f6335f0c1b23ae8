package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/command"
	"github.com/example/storefront/internal/domain/catalog"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/domain/wallet"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/example/storefront/internal/payment"
	"github.com/example/storefront/internal/query"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	auth.Cost = bcrypt.MinCost
}

const (
	testJWTSecret = "api-test-secret-0123456789abcdefghij"
	testPassword  = "correct-horse-battery"
)

type apiEnv struct {
	server http.Handler
	users  *user.Service
	pub    *mocks.MockPublisher
	gw     *payment.MockGateway
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	pub := mocks.NewMockPublisher()
	mem := store.NewMemory(pub)
	repos := mem.Repositories()

	jwtService, err := auth.NewJWTService(testJWTSecret, "storefront", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	users := user.NewService(repos.Users)
	gw := payment.NewMockGateway("gateway-secret")
	cmd := command.NewHandler(mem, gw, "INR")
	router := NewRouter(NewHandlers(cmd, query.NewHandler(repos)), NewAuthHandlers(users, jwtService), jwtService)
	return &apiEnv{server: router, users: users, pub: pub, gw: gw}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *apiEnv) register(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: email, Password: testPassword, Name: "Test"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[AuthResponse](t, rec).AccessToken
}

func (e *apiEnv) adminToken(t *testing.T) string {
	t.Helper()
	_, err := e.users.RegisterAdmin(context.Background(), "admin@example.com", testPassword, "Admin")
	require.NoError(t, err)
	rec := e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "admin@example.com", Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[AuthResponse](t, rec).AccessToken
}

// seedCatalog creates a 100.00 product with a 20% product offer and the
// SAVE10 coupon (10%, capped at 15).
func (e *apiEnv) seedCatalog(t *testing.T, admin string) *catalog.Product {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/admin/categories", admin, command.CreateCategory{Name: "Shoes"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	category := decode[catalog.Category](t, rec)

	rec = e.do(t, http.MethodPost, "/api/admin/products", admin, command.CreateProduct{
		Name: "Runner", CategoryID: category.ID, Price: decimal.NewFromInt(100), Stock: 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[catalog.Product](t, rec)

	now := time.Now().UTC()
	rec = e.do(t, http.MethodPost, "/api/admin/offers", admin, map[string]any{
		"name":                "Runner week",
		"discount_percentage": "20",
		"scope":               "product",
		"product_ids":         []string{product.ID},
		"starts_at":           now.Add(-time.Hour),
		"ends_at":             now.Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/admin/coupons", admin, map[string]any{
		"code":                "SAVE10",
		"discount_percentage": "10",
		"min_purchase_amount": "0",
		"max_discount_amount": "15",
		"starts_at":           now.Add(-time.Hour),
		"expires_at":          now.Add(24 * time.Hour),
		"usage_limit":         10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return &product
}

// ============================================
// Auth
// ============================================

func TestAuth_RegisterLoginMe(t *testing.T) {
	e := newAPIEnv(t)
	token := e.register(t, "Ada@Example.com")

	rec := e.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[UserResponse](t, rec)
	assert.Equal(t, "ada@example.com", me.Email)
	assert.Equal(t, user.RoleCustomer, me.Role)

	rec = e.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: "ada@example.com", Password: testPassword, Name: "Ada"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email_taken", decode[ErrorResponse](t, rec).Code)

	rec = e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode[ErrorResponse](t, rec).Code)
}

func TestAuth_RegisterValidation(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: "x@example.com", Password: "short", Name: "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decode[ErrorResponse](t, rec).Code)

	rec = e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"unexpected": "field"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_body", decode[ErrorResponse](t, rec).Code)
}

func TestAuth_Refresh(t *testing.T) {
	e := newAPIEnv(t)
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: "r@example.com", Password: testPassword, Name: "R"})
	require.Equal(t, http.StatusCreated, rec.Code)
	pair := decode[AuthResponse](t, rec)

	rec = e.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[AuthResponse](t, rec).AccessToken)

	// An access token is not a refresh token.
	rec = e.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": pair.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_ChangePassword(t *testing.T) {
	e := newAPIEnv(t)
	token := e.register(t, "pw@example.com")

	rec := e.do(t, http.MethodPost, "/api/auth/password", token, ChangePasswordRequest{CurrentPassword: "wrong-password", NewPassword: "new-password-123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/auth/password", token, ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "new-password-123"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "pw@example.com", Password: testPassword})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "pw@example.com", Password: "new-password-123"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_BlockUser(t *testing.T) {
	e := newAPIEnv(t)
	admin := e.adminToken(t)
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: "mallory@example.com", Password: testPassword, Name: "Mallory"})
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decode[AuthResponse](t, rec)

	rec = e.do(t, http.MethodPatch, "/api/admin/users/"+session.User.ID, admin, map[string]bool{"blocked": true})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]UserResponse](t, rec)
	require.Len(t, listed, 2)
	for _, u := range listed {
		assert.Equal(t, u.ID == session.User.ID, u.Blocked, u.Email)
	}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
	}{
		{"login", http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "mallory@example.com", Password: testPassword}},
		{"refresh", http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": session.RefreshToken}},
		{"me with old access token", http.MethodGet, "/api/auth/me", session.AccessToken, nil},
		{"cart with old access token", http.MethodGet, "/api/cart", session.AccessToken, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
			assert.Equal(t, "user_blocked", decode[ErrorResponse](t, rec).Code)
		})
	}

	rec = e.do(t, http.MethodPatch, "/api/admin/users/"+session.User.ID, admin, map[string]bool{"blocked": false})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "mallory@example.com", Password: testPassword})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_BlockUserValidation(t *testing.T) {
	e := newAPIEnv(t)
	admin := e.adminToken(t)
	rec := e.do(t, http.MethodGet, "/api/auth/me", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	self := decode[UserResponse](t, rec)

	rec = e.do(t, http.MethodPatch, "/api/admin/users/"+self.ID, admin, map[string]bool{"blocked": true})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "cannot_block_admin", decode[ErrorResponse](t, rec).Code)

	rec = e.do(t, http.MethodPatch, "/api/admin/users/missing", admin, map[string]bool{"blocked": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPatch, "/api/admin/users/"+self.ID, admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProducts_FilterByCategory(t *testing.T) {
	e := newAPIEnv(t)
	admin := e.adminToken(t)
	runner := e.seedCatalog(t, admin)

	rec := e.do(t, http.MethodGet, "/api/products?category="+runner.CategoryID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	products := decode[[]map[string]any](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, runner.ID, products[0]["id"])

	rec = e.do(t, http.MethodGet, "/api/products?category=missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "category_not_found", decode[ErrorResponse](t, rec).Code)
}

func TestCheckout_OnlineTotalMustMatchPayment(t *testing.T) {
	e := newAPIEnv(t)
	admin := e.adminToken(t)
	runner := e.seedCatalog(t, admin)
	customer := e.register(t, "online@example.com")

	rec := e.do(t, http.MethodPost, "/api/cart/items", customer, map[string]any{"product_id": runner.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodPost, "/api/checkout/payment", customer, map[string]string{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decode[command.CheckoutSession](t, rec)
	paymentID, signature := e.gw.Pay(session.GatewayOrderID)

	rec = e.do(t, http.MethodPost, "/api/cart/items", customer, map[string]any{"product_id": runner.ID, "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	placeOrder := map[string]any{
		"payment_method": "online",
		"payment": map[string]string{
			"gateway_order_id": session.GatewayOrderID,
			"payment_id":       paymentID,
			"signature":        signature,
		},
	}
	rec = e.do(t, http.MethodPost, "/api/orders", customer, placeOrder)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "price_mismatch", decode[ErrorResponse](t, rec).Code)

	rec = e.do(t, http.MethodPut, "/api/cart/items/"+runner.ID, customer, map[string]any{"quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodPost, "/api/orders", customer, placeOrder)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[order.Order](t, rec)
	assert.Equal(t, order.StatusPaid, placed.Status)
	assert.Equal(t, "80.00", placed.TotalPrice.StringFixed(2))
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	e := newAPIEnv(t)
	customer := e.register(t, "c@example.com")

	rec := e.do(t, http.MethodPost, "/api/admin/categories", customer, command.CreateCategory{Name: "Hats"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/admin/categories", "", command.CreateCategory{Name: "Hats"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================
// Storefront flow
// ============================================

func TestCheckoutFlow_PriceOrderCancel(t *testing.T) {
	e := newAPIEnv(t)
	admin := e.adminToken(t)
	product := e.seedCatalog(t, admin)
	customer := e.register(t, "buyer@example.com")

	rec := e.do(t, http.MethodGet, "/api/products/"+product.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[query.ProductView](t, rec)
	assert.True(t, view.DisplayPrice.Equal(decimal.NewFromInt(80)))

	rec = e.do(t, http.MethodPost, "/api/cart/items", customer, cartItemRequest{ProductID: product.ID, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/cart/price?coupon=save10", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	quote := decode[command.Quote](t, rec)
	assert.True(t, quote.OriginalPrice.Equal(decimal.NewFromInt(200)))
	assert.True(t, quote.Subtotal.Equal(decimal.NewFromInt(160)))
	assert.True(t, quote.CouponDiscount.Equal(decimal.NewFromInt(15)))
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(145)))

	rec = e.do(t, http.MethodPost, "/api/orders", customer, map[string]any{
		"shipping_address_id": "addr-1",
		"payment_method":      "cod",
		"coupon_code":         "SAVE10",
		"client_total":        "145.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[order.Order](t, rec)
	assert.Equal(t, order.StatusPending, placed.Status)
	assert.True(t, placed.TotalPrice.Equal(decimal.NewFromInt(145)))

	rec = e.do(t, http.MethodGet, "/api/orders", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]order.Order](t, rec), 1)

	rec = e.do(t, http.MethodPost, "/api/orders/"+placed.ID+"/cancel", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, order.StatusCancelled, decode[order.Order](t, rec).Status)

	rec = e.do(t, http.MethodPost, "/api/orders/"+placed.ID+"/cancel", customer, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode[ErrorResponse](t, rec).Code)

	assert.Contains(t, e.pub.EventTypes(), order.EventOrderCancelled)
}

func TestPlaceOrder_WalletAndReturn(t *testing.T) {
	e := newAPIEnv(t)
	admin := e.adminToken(t)
	product := e.seedCatalog(t, admin)
	customer := e.register(t, "wallet@example.com")

	rec := e.do(t, http.MethodGet, "/api/auth/me", customer, nil)
	me := decode[UserResponse](t, rec)
	rec = e.do(t, http.MethodPost, "/api/admin/wallets/"+me.ID+"/credit", admin, map[string]any{"amount": "100", "reason": "Welcome"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	e.do(t, http.MethodPost, "/api/cart/items", customer, cartItemRequest{ProductID: product.ID, Quantity: 1})
	req := map[string]any{"shipping_address_id": "addr-1", "payment_method": "wallet"}
	rec = e.do(t, http.MethodPost, "/api/orders", customer, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[order.Order](t, rec)
	assert.Equal(t, order.StatusPaid, placed.Status)

	rec = e.do(t, http.MethodGet, "/api/wallet", customer, nil)
	assert.True(t, decode[wallet.Wallet](t, rec).Balance.Equal(decimal.NewFromInt(20)))

	// Not enough left for a second one.
	e.do(t, http.MethodPost, "/api/cart/items", customer, cartItemRequest{ProductID: product.ID, Quantity: 1})
	rec = e.do(t, http.MethodPost, "/api/orders", customer, req)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "insufficient_balance", decode[ErrorResponse](t, rec).Code)

	rec = e.do(t, http.MethodPost, "/api/orders/"+placed.ID+"/return", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/wallet", customer, nil)
	assert.True(t, decode[wallet.Wallet](t, rec).Balance.Equal(decimal.NewFromInt(100)))
}

func TestOrders_OwnershipAndAdminStatus(t *testing.T) {
	e := newAPIEnv(t)
	admin := e.adminToken(t)
	product := e.seedCatalog(t, admin)
	alice := e.register(t, "alice@example.com")
	bob := e.register(t, "bob@example.com")

	e.do(t, http.MethodPost, "/api/cart/items", alice, cartItemRequest{ProductID: product.ID, Quantity: 1})
	rec := e.do(t, http.MethodPost, "/api/orders", alice, map[string]any{"shipping_address_id": "a", "payment_method": "cod"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[order.Order](t, rec)

	rec = e.do(t, http.MethodGet, "/api/orders/"+placed.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(t, http.MethodPost, "/api/orders/"+placed.ID+"/cancel", bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/admin/orders/"+placed.ID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPatch, "/api/admin/orders/"+placed.ID+"/status", admin, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	for _, next := range []string{"paid", "delivered"} {
		rec = e.do(t, http.MethodPatch, "/api/admin/orders/"+placed.ID+"/status", admin, map[string]string{"status": next})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Equal(t, order.StatusDelivered, decode[order.Order](t, rec).Status)

	rec = e.do(t, http.MethodPatch, "/api/admin/orders/"+placed.ID+"/status", admin, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_status", decode[ErrorResponse](t, rec).Code)
}

// ============================================
// Error mapping
// ============================================

func TestErrorResponses(t *testing.T) {
	e := newAPIEnv(t)
	admin := e.adminToken(t)
	product := e.seedCatalog(t, admin)
	customer := e.register(t, "err@example.com")

	rec := e.do(t, http.MethodPost, "/api/orders", customer, map[string]any{"payment_method": "cod"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "empty_cart", decode[ErrorResponse](t, rec).Code)

	rec = e.do(t, http.MethodPost, "/api/cart/items", customer, cartItemRequest{ProductID: "missing", Quantity: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product_not_found", decode[ErrorResponse](t, rec).Code)

	rec = e.do(t, http.MethodPost, "/api/orders", customer, map[string]any{"payment_method": "bitcoin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payment_method", decode[ErrorResponse](t, rec).Code)

	e.do(t, http.MethodPost, "/api/cart/items", customer, cartItemRequest{ProductID: product.ID, Quantity: 1})
	rec = e.do(t, http.MethodPost, "/api/orders", customer, map[string]any{"payment_method": "online"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "missing_payment_details", decode[ErrorResponse](t, rec).Code)

	rec = e.do(t, http.MethodPost, "/api/orders", customer, map[string]any{"payment_method": "cod", "client_total": "1.00"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "price_mismatch", decode[ErrorResponse](t, rec).Code)

	rec = e.do(t, http.MethodPost, "/api/cart/coupon", customer, map[string]string{"code": "NOPE"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_coupon", decode[ErrorResponse](t, rec).Code)
}

func TestClassify_InsufficientStockCarriesProduct(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	respondErr(rec, req, &catalog.InsufficientStockError{ProductID: "p-1"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "insufficient_stock", body.Code)
	assert.Equal(t, "p-1", body.ProductID)
}
