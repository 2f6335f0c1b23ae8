package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/catalog"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/promotion"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/domain/wallet"
	"github.com/example/storefront/internal/payment"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	ProductID string `json:"product_id,omitempty"`
}

type errorKind struct {
	err    error
	status int
	code   string
}

// Order matters: the first match wins.
var errorKinds = []errorKind{
	{catalog.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{catalog.ErrCategoryNotFound, http.StatusNotFound, "category_not_found"},
	{order.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{wallet.ErrWalletNotFound, http.StatusNotFound, "wallet_not_found"},
	{promotion.ErrOfferNotFound, http.StatusNotFound, "offer_not_found"},
	{promotion.ErrCouponNotFound, http.StatusNotFound, "coupon_not_found"},
	{user.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{cart.ErrLineNotFound, http.StatusNotFound, "cart_line_not_found"},

	{catalog.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{catalog.ErrProductUnavailable, http.StatusConflict, "product_unavailable"},
	{catalog.ErrDuplicateProduct, http.StatusConflict, "duplicate_product"},
	{catalog.ErrDuplicateCategory, http.StatusConflict, "duplicate_category"},
	{promotion.ErrDuplicateCoupon, http.StatusConflict, "duplicate_coupon"},
	{user.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{order.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{order.ErrPriceMismatch, http.StatusConflict, "price_mismatch"},
	{order.ErrDuplicateOrder, http.StatusConflict, "duplicate_order"},
	{user.ErrCannotBlockAdmin, http.StatusConflict, "cannot_block_admin"},

	{wallet.ErrInsufficientBalance, http.StatusPaymentRequired, "insufficient_balance"},
	{payment.ErrPaymentVerificationFailed, http.StatusPaymentRequired, "payment_verification_failed"},
	{payment.ErrGatewayUnavailable, http.StatusBadGateway, "gateway_unavailable"},

	{order.ErrForbidden, http.StatusForbidden, "forbidden"},
	{user.ErrUserBlocked, http.StatusForbidden, "user_blocked"},
	{user.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{auth.ErrExpiredToken, http.StatusUnauthorized, "token_expired"},

	{promotion.ErrInvalidCoupon, http.StatusUnprocessableEntity, "invalid_coupon"},
	{order.ErrEmptyOrder, http.StatusUnprocessableEntity, "empty_cart"},
	{order.ErrMissingPaymentDetails, http.StatusUnprocessableEntity, "missing_payment_details"},
	{order.ErrInvalidPaymentMethod, http.StatusBadRequest, "invalid_payment_method"},
	{order.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
}

// validationErrors are client input problems reported as 400 with code
// "invalid_input".
var validationErrors = []error{
	catalog.ErrInvalidName, catalog.ErrInvalidPrice, catalog.ErrInvalidQuantity, catalog.ErrInvalidStockLevel,
	cart.ErrInvalidQuantity, cart.ErrInvalidProduct,
	promotion.ErrInvalidPercentage, promotion.ErrInvalidWindow, promotion.ErrInvalidScope,
	promotion.ErrInvalidAmount, promotion.ErrInvalidCode, promotion.ErrInvalidOfferName,
	wallet.ErrInvalidAmount, payment.ErrInvalidAmount,
	user.ErrInvalidEmail, user.ErrInvalidName,
	auth.ErrPasswordTooShort, auth.ErrPasswordTooLong,
}

func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusBadRequest, "invalid_input"
		}
	}
	return http.StatusInternalServerError, "internal"
}

// respondErr maps a domain error to its status and JSON body. Unknown errors
// are logged and hidden behind a generic message.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	body := ErrorResponse{Error: err.Error(), Code: code}

	var stockErr *catalog.InsufficientStockError
	if errors.As(err, &stockErr) {
		body.ProductID = stockErr.ProductID
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("component", "http").Str("path", r.URL.Path).Msg("request failed")
		body.Error = "internal server error"
	}
	respondJSON(w, status, body)
}

func respondJSONError(w http.ResponseWriter, message, code string, status int) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst, writing a 400 on failure. An
// empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondJSONError(w, "invalid request body", "invalid_body", http.StatusBadRequest)
		return false
	}
	return true
}
