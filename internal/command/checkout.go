package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/catalog"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/promotion"
	"github.com/example/storefront/internal/domain/wallet"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/payment"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Quote is a cart priced at one instant: offers per line, then at most one
// coupon on the subtotal.
type Quote struct {
	Lines          []cart.PricedLine `json:"lines"`
	OriginalPrice  decimal.Decimal   `json:"original_price"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	CouponCode     string            `json:"coupon_code,omitempty"`
	CouponDiscount decimal.Decimal   `json:"coupon_discount"`
	Total          decimal.Decimal   `json:"total"`
	PricedAt       time.Time         `json:"priced_at"`
}

// CheckoutSession is an open gateway order waiting for the client to pay.
type CheckoutSession struct {
	Quote          *Quote `json:"quote"`
	GatewayOrderID string `json:"gateway_order_id"`
	Currency       string `json:"currency"`
}

// PriceCart values the user's cart without a coupon.
func (h *Handler) PriceCart(ctx context.Context, userID string) (*Quote, error) {
	return h.readQuote(ctx, userID, "")
}

// ApplyCoupon prices the cart with code applied. An unusable coupon is an
// error rather than a silently undiscounted quote.
func (h *Handler) ApplyCoupon(ctx context.Context, userID, code string) (*Quote, error) {
	if promotion.NormalizeCode(code) == "" {
		return nil, fmt.Errorf("%w: %v", promotion.ErrInvalidCoupon, promotion.ErrInvalidCode)
	}
	return h.readQuote(ctx, userID, code)
}

// ValidateCoupon checks code against an arbitrary subtotal.
func (h *Handler) ValidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*promotion.Discount, error) {
	var d *promotion.Discount
	err := h.tx.WithinTx(ctx, func(r store.Repositories) error {
		var err error
		d, err = promotion.NewEvaluator(r.Promotion).ValidateCoupon(ctx, code, subtotal, h.now())
		return err
	})
	return d, err
}

func (h *Handler) readQuote(ctx context.Context, userID, code string) (*Quote, error) {
	var q *Quote
	err := h.tx.WithinTx(ctx, func(r store.Repositories) error {
		var err error
		q, err = h.quote(ctx, r, userID, code, h.now())
		return err
	})
	return q, err
}

func (h *Handler) quote(ctx context.Context, r store.Repositories, userID, code string, now time.Time) (*Quote, error) {
	c, err := r.Carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, order.ErrEmptyOrder
	}

	pr, err := cart.Price(ctx, r.Catalog, promotion.NewEvaluator(r.Promotion), c, now)
	if err != nil {
		return nil, err
	}
	q := &Quote{
		Lines:          pr.Lines,
		OriginalPrice:  pr.OriginalPrice,
		Subtotal:       pr.Subtotal,
		CouponDiscount: decimal.Zero,
		Total:          pr.Subtotal,
		PricedAt:       now,
	}
	if promotion.NormalizeCode(code) == "" {
		return q, nil
	}

	d, err := promotion.NewEvaluator(r.Promotion).ValidateCoupon(ctx, code, pr.Subtotal, now)
	if err != nil {
		return nil, err
	}
	q.CouponCode = d.Code
	q.CouponDiscount = d.Amount
	q.Total = pr.Subtotal.Sub(d.Amount)
	return q, nil
}

// BeginOnlinePayment opens a gateway order for the current cart total.
// Nothing is persisted; the order only exists once PlaceOrder succeeds.
func (h *Handler) BeginOnlinePayment(ctx context.Context, userID, couponCode string) (*CheckoutSession, error) {
	q, err := h.readQuote(ctx, userID, couponCode)
	if err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, h.paymentTimeout)
	defer cancel()
	id, err := h.gateway.CreateOrder(gwCtx, q.Total, h.currency, userID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "checkout").
		Str("user_id", userID).
		Str("gateway_order_id", id).
		Str("total", q.Total.StringFixed(2)).
		Msg("online payment started")
	return &CheckoutSession{Quote: q, GatewayOrderID: id, Currency: h.currency}, nil
}

// PlaceOrder prices the cart again, redeems the coupon, takes the stock,
// charges the wallet when asked to and records the order, all in one
// transaction. A repeated request with the same idempotency key returns the
// order created the first time.
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error) {
	if !cmd.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: %q", order.ErrInvalidPaymentMethod, cmd.PaymentMethod)
	}

	key := cmd.IdempotencyKey
	if cmd.PaymentMethod == order.PaymentOnline {
		p := cmd.Payment
		if p == nil || p.GatewayOrderID == "" || p.PaymentID == "" || p.Signature == "" {
			return nil, order.ErrMissingPaymentDetails
		}
		key = p.GatewayOrderID
	}

	if key != "" {
		existing, err := h.findByKey(ctx, cmd.UserID, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	var paid *payment.Order
	if cmd.PaymentMethod == order.PaymentOnline {
		var err error
		if paid, err = h.verifyPayment(ctx, cmd.UserID, cmd.Payment); err != nil {
			return nil, err
		}
	}

	var placed *order.Order
	err := h.tx.WithinTx(ctx, func(r store.Repositories) error {
		o, err := h.place(ctx, r, cmd, key, paid)
		placed = o
		return err
	})
	if errors.Is(err, order.ErrDuplicateOrder) && key != "" {
		existing, findErr := h.findByKey(ctx, cmd.UserID, key)
		if findErr == nil && existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "checkout").
		Str("order_id", placed.ID).
		Str("user_id", placed.UserID).
		Str("payment_method", string(placed.PaymentMethod)).
		Str("total", placed.TotalPrice.StringFixed(2)).
		Msg("order placed")
	return placed, nil
}

// verifyPayment checks the client's proof and reads back what the gateway
// order was opened for. The order must belong to userID.
func (h *Handler) verifyPayment(ctx context.Context, userID string, p *PaymentProof) (*payment.Order, error) {
	if !h.gateway.VerifySignature(p.GatewayOrderID, p.PaymentID, p.Signature) {
		return nil, payment.ErrPaymentVerificationFailed
	}

	gwCtx, cancel := context.WithTimeout(ctx, h.paymentTimeout)
	defer cancel()
	paid, err := h.gateway.FetchOrder(gwCtx, p.GatewayOrderID)
	if errors.Is(err, payment.ErrUnknownOrder) {
		return nil, fmt.Errorf("%w: %v", payment.ErrPaymentVerificationFailed, err)
	}
	if err != nil {
		return nil, err
	}
	if paid.Receipt != userID {
		return nil, fmt.Errorf("%w: gateway order %s was opened for another user",
			payment.ErrPaymentVerificationFailed, p.GatewayOrderID)
	}
	return paid, nil
}

func (h *Handler) findByKey(ctx context.Context, userID, key string) (*order.Order, error) {
	var found *order.Order
	err := h.tx.WithinTx(ctx, func(r store.Repositories) error {
		o, err := r.Orders.FindByIdempotencyKey(ctx, userID, key)
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil
		}
		found = o
		return err
	})
	return found, err
}

func (h *Handler) place(ctx context.Context, r store.Repositories, cmd PlaceOrder, key string, paid *payment.Order) (*order.Order, error) {
	now := h.now()
	q, err := h.quote(ctx, r, cmd.UserID, cmd.CouponCode, now)
	if err != nil {
		return nil, err
	}
	// The cart or coupon may have changed since the gateway order was opened.
	if paid != nil && (!paid.Amount.Equal(q.Total.Round(2)) || !strings.EqualFold(paid.Currency, h.currency)) {
		return nil, fmt.Errorf("%w: paid %s %s, current total %s %s", order.ErrPriceMismatch,
			paid.Amount.StringFixed(2), paid.Currency, q.Total.StringFixed(2), h.currency)
	}
	if cmd.ClientTotal != nil && cmd.ClientTotal.LessThan(q.Total) {
		return nil, fmt.Errorf("%w: client total %s, current total %s",
			order.ErrPriceMismatch, cmd.ClientTotal.StringFixed(2), q.Total.StringFixed(2))
	}

	if q.CouponCode != "" {
		ok, err := r.Promotion.RedeemCoupon(ctx, q.CouponCode)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s has been fully redeemed", promotion.ErrInvalidCoupon, q.CouponCode)
		}
	}

	lines := make([]order.Line, 0, len(q.Lines))
	for _, l := range q.Lines {
		ok, err := r.Catalog.DecrementStock(ctx, l.ProductID, l.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &catalog.InsufficientStockError{ProductID: l.ProductID}
		}
		lines = append(lines, order.Line{
			ProductID:           l.ProductID,
			Name:                l.Name,
			Quantity:            l.Quantity,
			UnitPrice:           l.UnitPrice,
			DiscountedUnitPrice: l.DiscountedUnitPrice,
		})
	}

	o := &order.Order{
		ID:                order.NewID(),
		UserID:            cmd.UserID,
		Lines:             lines,
		OriginalPrice:     q.OriginalPrice,
		Subtotal:          q.Subtotal,
		CouponCode:        q.CouponCode,
		CouponDiscount:    q.CouponDiscount,
		TotalPrice:        q.Total,
		ShippingAddressID: cmd.ShippingAddressID,
		PaymentMethod:     cmd.PaymentMethod,
		IdempotencyKey:    key,
		Status:            order.StatusPaid,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	switch cmd.PaymentMethod {
	case order.PaymentCOD:
		o.Status = order.StatusPending
	case order.PaymentOnline:
		o.Payment = &order.PaymentReference{
			GatewayOrderID: cmd.Payment.GatewayOrderID,
			PaymentID:      cmd.Payment.PaymentID,
			Signature:      cmd.Payment.Signature,
		}
	case order.PaymentWallet:
		if o.TotalPrice.IsPositive() {
			reason := fmt.Sprintf("Payment for Order #%s", o.ID)
			if _, err := wallet.NewService(r.Wallets).Debit(ctx, cmd.UserID, o.TotalPrice, reason, o.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := r.Orders.Create(ctx, o); err != nil {
		return nil, err
	}
	if err := r.Carts.Clear(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	_, err = r.Events.Append(ctx, o.ID, order.AggregateType, order.EventOrderPlaced, order.OrderPlaced{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Lines:         o.Lines,
		CouponCode:    o.CouponCode,
		TotalPrice:    o.TotalPrice,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		PlacedAt:      o.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}
