package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/rs/zerolog/log"
)

// UserLookup resolves the recipient of an order email.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
}

// Handler processes events for sending notifications
type Handler struct {
	emailService *email.Service
	users        UserLookup
}

// NewHandler creates a new notification handler
func NewHandler(emailSvc *email.Service, users UserLookup) *Handler {
	return &Handler{
		emailService: emailSvc,
		users:        users,
	}
}

// HandleEvent sends the email matching an order event. Other events are
// ignored. Events for unknown users are logged and dropped; a failed send
// is returned so the caller can retry.
func (h *Handler) HandleEvent(ctx context.Context, event store.Event) error {
	logger := log.With().
		Str("component", "notifier").
		Str("event_type", event.EventType).
		Str("aggregate_id", event.AggregateID).
		Logger()

	var (
		userID string
		send   func(to string) error
	)
	switch event.EventType {
	case order.EventOrderPlaced:
		var e order.OrderPlaced
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		userID = e.UserID
		send = func(to string) error { return h.emailService.SendOrderConfirmation(to, e) }
	case order.EventOrderCancelled:
		var e order.OrderCancelled
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		userID = e.UserID
		send = func(to string) error { return h.emailService.SendOrderCancelled(to, e) }
	case order.EventOrderReturned:
		var e order.OrderReturned
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		userID = e.UserID
		send = func(to string) error { return h.emailService.SendOrderReturned(to, e) }
	case order.EventOrderStatusChanged:
		var e order.OrderStatusChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		userID = e.UserID
		send = func(to string) error { return h.emailService.SendStatusUpdate(to, e) }
	default:
		logger.Debug().Msg("ignoring event")
		return nil
	}

	u, err := h.users.FindByID(ctx, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		logger.Warn().Str("user_id", userID).Msg("user not found, skipping email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up user %s: %w", userID, err)
	}

	if err := send(u.Email); err != nil {
		logger.Error().Err(err).Str("to", u.Email).Msg("failed to send email")
		return err
	}
	logger.Info().Str("to", u.Email).Msg("email sent")
	return nil
}
