package api

import (
	"net/http"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/domain/user"
)

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, jwtService *auth.JWTService) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.AuthMiddleware(jwtService)
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(user.RoleAdmin)(h))
	}
	customer := func(h http.HandlerFunc) http.Handler {
		return authed(authHandlers.requireActive(h))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth
	mux.HandleFunc("POST /api/auth/register", authHandlers.Register)
	mux.HandleFunc("POST /api/auth/login", authHandlers.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandlers.Refresh)
	mux.HandleFunc("POST /api/auth/logout", authHandlers.Logout)
	mux.Handle("GET /api/auth/me", customer(authHandlers.Me))
	mux.Handle("POST /api/auth/password", customer(authHandlers.ChangePassword))

	// Catalog
	mux.HandleFunc("GET /api/products", handlers.GetProducts)
	mux.HandleFunc("GET /api/products/{id}", handlers.GetProduct)
	mux.HandleFunc("GET /api/categories", handlers.GetCategories)

	// Cart
	mux.Handle("GET /api/cart", customer(handlers.GetCart))
	mux.Handle("DELETE /api/cart", customer(handlers.ClearCart))
	mux.Handle("POST /api/cart/items", customer(handlers.AddToCart))
	mux.Handle("PUT /api/cart/items/{productID}", customer(handlers.UpdateCartItem))
	mux.Handle("DELETE /api/cart/items/{productID}", customer(handlers.RemoveFromCart))
	mux.Handle("GET /api/cart/price", customer(handlers.PriceCart))
	mux.Handle("POST /api/cart/coupon", customer(handlers.ApplyCoupon))
	mux.Handle("POST /api/coupons/validate", customer(handlers.ValidateCoupon))

	// Checkout and orders
	mux.Handle("POST /api/checkout/payment", customer(handlers.BeginPayment))
	mux.Handle("POST /api/orders", customer(handlers.PlaceOrder))
	mux.Handle("GET /api/orders", customer(handlers.GetOrders))
	mux.Handle("GET /api/orders/{id}", customer(handlers.GetOrder))
	mux.Handle("POST /api/orders/{id}/cancel", customer(handlers.CancelOrder))
	mux.Handle("POST /api/orders/{id}/return", customer(handlers.ReturnOrder))

	// Wallet
	mux.Handle("GET /api/wallet", customer(handlers.GetWallet))

	// Admin
	mux.Handle("POST /api/admin/categories", admin(handlers.CreateCategory))
	mux.Handle("PATCH /api/admin/categories/{id}", admin(handlers.SetCategoryActive))
	mux.Handle("GET /api/admin/products", admin(handlers.GetAllProducts))
	mux.Handle("POST /api/admin/products", admin(handlers.CreateProduct))
	mux.Handle("PUT /api/admin/products/{id}", admin(handlers.UpdateProduct))
	mux.Handle("PATCH /api/admin/products/{id}", admin(handlers.SetProductActive))
	mux.Handle("POST /api/admin/products/{id}/restock", admin(handlers.Restock))
	mux.Handle("GET /api/admin/offers", admin(handlers.GetOffers))
	mux.Handle("POST /api/admin/offers", admin(handlers.CreateOffer))
	mux.Handle("DELETE /api/admin/offers/{id}", admin(handlers.DeactivateOffer))
	mux.Handle("GET /api/admin/coupons", admin(handlers.GetCoupons))
	mux.Handle("POST /api/admin/coupons", admin(handlers.CreateCoupon))
	mux.Handle("DELETE /api/admin/coupons/{code}", admin(handlers.DeactivateCoupon))
	mux.Handle("GET /api/admin/orders", admin(handlers.GetAllOrders))
	mux.Handle("GET /api/admin/orders/{id}", admin(handlers.GetOrder))
	mux.Handle("PATCH /api/admin/orders/{id}/status", admin(handlers.UpdateOrderStatus))
	mux.Handle("POST /api/admin/wallets/{userID}/credit", admin(handlers.CreditWallet))
	mux.Handle("GET /api/admin/users", admin(authHandlers.ListUsers))
	mux.Handle("PATCH /api/admin/users/{userID}", admin(authHandlers.SetUserBlocked))

	return middleware.Recoverer(middleware.RequestLogger(mux))
}
