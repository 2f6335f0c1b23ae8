package api

import (
	"net/http"
	"strings"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/command"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/query"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
	}
}

// Catalog

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.queryHandler.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.queryHandler.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.queryHandler.ListCategories(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// Cart

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.queryHandler.GetCart(r.Context(), getUserID(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.cmdHandler.AddToCart(r.Context(), command.AddToCart{
		UserID:    getUserID(r),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.cmdHandler.UpdateCartItem(r.Context(), command.UpdateCartItem{
		UserID:    getUserID(r),
		ProductID: r.PathValue("productID"),
		Quantity:  req.Quantity,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cmdHandler.RemoveFromCart(r.Context(), command.RemoveFromCart{
		UserID:    getUserID(r),
		ProductID: r.PathValue("productID"),
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.ClearCart(r.Context(), getUserID(r)); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pricing and coupons

// PriceCart prices the cart, with the coupon from ?coupon= when given.
func (h *Handlers) PriceCart(w http.ResponseWriter, r *http.Request) {
	var (
		q   *command.Quote
		err error
	)
	if code := r.URL.Query().Get("coupon"); code != "" {
		q, err = h.cmdHandler.ApplyCoupon(r.Context(), getUserID(r), code)
	} else {
		q, err = h.cmdHandler.PriceCart(r.Context(), getUserID(r))
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (h *Handlers) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	q, err := h.cmdHandler.ApplyCoupon(r.Context(), getUserID(r), req.Code)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (h *Handlers) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code     string          `json:"code"`
		Subtotal decimal.Decimal `json:"subtotal"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.cmdHandler.ValidateCoupon(r.Context(), req.Code, req.Subtotal)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// Checkout

func (h *Handlers) BeginPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CouponCode string `json:"coupon_code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.cmdHandler.BeginOnlinePayment(r.Context(), getUserID(r), req.CouponCode)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// PlaceOrder accepts the idempotency key in the body or in the
// Idempotency-Key header.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.PlaceOrder
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.UserID = getUserID(r)
	if cmd.IdempotencyKey == "" {
		cmd.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}

	o, err := h.cmdHandler.PlaceOrder(r.Context(), cmd)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

// Orders

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrders(r.Context(), getUserID(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GetOrder returns the caller's order; admins can read any order.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	scope := getUserID(r)
	if isAdmin(r) {
		scope = ""
	}
	o, err := h.queryHandler.GetOrder(r.Context(), r.PathValue("id"), scope)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.cmdHandler.CancelOrder(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) ReturnOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.cmdHandler.ReturnOrder(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// Wallet

func (h *Handlers) GetWallet(w http.ResponseWriter, r *http.Request) {
	wal, err := h.queryHandler.GetWallet(r.Context(), getUserID(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wal)
}

// Helper functions

// getUserID returns the authenticated user. Routes that call it are
// always behind AuthMiddleware.
func getUserID(r *http.Request) string {
	return middleware.GetUserID(r.Context())
}

// isAdmin checks if the current user has admin role
func isAdmin(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return false
	}
	return claims.Role == user.RoleAdmin
}

func actor(r *http.Request) command.Actor {
	return command.Actor{UserID: getUserID(r), Admin: isAdmin(r)}
}

// statusRequest is the body of the admin status update.
type statusRequest struct {
	Status order.Status `json:"status"`
}
