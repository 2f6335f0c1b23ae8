package command

import (
	"context"
	"fmt"
	"time"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/wallet"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CancelOrder cancels a pending or paid order, puts its stock back and
// refunds prepaid orders to the wallet.
func (h *Handler) CancelOrder(ctx context.Context, orderID string, actor Actor) (*order.Order, error) {
	return h.fulfill(ctx, orderID, actor, order.StatusCancelled, false)
}

// ReturnOrder takes back a paid or delivered order, puts its stock back and
// refunds the full total to the wallet whatever the payment method.
func (h *Handler) ReturnOrder(ctx context.Context, orderID string, actor Actor) (*order.Order, error) {
	return h.fulfill(ctx, orderID, actor, order.StatusReturned, false)
}

// UpdateOrderStatus is the admin progression of an order. Cancelled and
// Returned carry the same side effects as CancelOrder and ReturnOrder. A
// delivered order cannot be updated; taking it back is a ReturnOrder.
func (h *Handler) UpdateOrderStatus(ctx context.Context, orderID string, next order.Status) (*order.Order, error) {
	if _, err := order.ParseStatus(string(next)); err != nil {
		return nil, err
	}
	return h.fulfill(ctx, orderID, Actor{Admin: true}, next, true)
}

func (h *Handler) fulfill(ctx context.Context, orderID string, actor Actor, next order.Status, statusUpdate bool) (*order.Order, error) {
	scope := actor.UserID
	if actor.Admin {
		scope = ""
	}

	var (
		updated *order.Order
		from    order.Status
	)
	err := h.tx.WithinTx(ctx, func(r store.Repositories) error {
		orders := order.NewService(r.Orders)
		o, err := orders.Get(ctx, orderID, scope)
		if err != nil {
			return err
		}
		from = o.Status
		if statusUpdate && !o.CanUpdateTo(next) {
			return o.TransitionError(next)
		}
		at := h.now()
		if err := orders.Transition(ctx, o, next, at); err != nil {
			return err
		}
		if err := h.applyEffects(ctx, r, o, from, at); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "fulfillment").
		Str("order_id", updated.ID).
		Str("from", string(from)).
		Str("to", string(updated.Status)).
		Bool("admin", actor.Admin).
		Msg("order status changed")
	return updated, nil
}

// applyEffects runs the stock and wallet consequences of o having just
// moved from `from` to its current status, and records the event.
func (h *Handler) applyEffects(ctx context.Context, r store.Repositories, o *order.Order, from order.Status, at time.Time) error {
	switch o.Status {
	case order.StatusCancelled:
		restocked, err := restock(ctx, r, o)
		if err != nil {
			return err
		}
		refunded := decimal.Zero
		if o.PaymentMethod != order.PaymentCOD {
			if refunded, err = refund(ctx, r, o, fmt.Sprintf("Cancelled Order #%s", o.ID)); err != nil {
				return err
			}
		}
		return appendEvent(ctx, r, o, order.EventOrderCancelled, order.OrderCancelled{
			OrderID:     o.ID,
			UserID:      o.UserID,
			Refunded:    refunded,
			Restocked:   restocked,
			CancelledAt: at,
		})

	case order.StatusReturned:
		restocked, err := restock(ctx, r, o)
		if err != nil {
			return err
		}
		refunded, err := refund(ctx, r, o, fmt.Sprintf("Refund for Order #%s", o.ID))
		if err != nil {
			return err
		}
		return appendEvent(ctx, r, o, order.EventOrderReturned, order.OrderReturned{
			OrderID:    o.ID,
			UserID:     o.UserID,
			Refunded:   refunded,
			Restocked:  restocked,
			ReturnedAt: at,
		})

	case order.StatusPaymentFailed:
		if _, err := restock(ctx, r, o); err != nil {
			return err
		}
	}

	return appendEvent(ctx, r, o, order.EventOrderStatusChanged, order.OrderStatusChanged{
		OrderID:   o.ID,
		UserID:    o.UserID,
		From:      from,
		To:        o.Status,
		ChangedAt: at,
	})
}

func restock(ctx context.Context, r store.Repositories, o *order.Order) (int, error) {
	total := 0
	for _, l := range o.Lines {
		if err := r.Catalog.IncrementStock(ctx, l.ProductID, l.Quantity); err != nil {
			return 0, fmt.Errorf("failed to restock %s: %w", l.ProductID, err)
		}
		total += l.Quantity
	}
	return total, nil
}

func refund(ctx context.Context, r store.Repositories, o *order.Order, reason string) (decimal.Decimal, error) {
	if !o.TotalPrice.IsPositive() {
		return decimal.Zero, nil
	}
	txn, err := wallet.NewService(r.Wallets).Credit(ctx, o.UserID, o.TotalPrice, reason, o.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return txn.Amount, nil
}

func appendEvent(ctx context.Context, r store.Repositories, o *order.Order, eventType string, data any) error {
	_, err := r.Events.Append(ctx, o.ID, order.AggregateType, eventType, data)
	return err
}
