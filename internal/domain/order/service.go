package order

import (
	"context"
	"time"
)

type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

// Get loads an order on behalf of userID. Admins pass an empty userID.
func (s *Service) Get(ctx context.Context, orderID, userID string) (*Order, error) {
	o, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && o.UserID != userID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]*Order, error) {
	return s.store.ListAll(ctx)
}

// Transition moves o to next with a conditional write on its current
// status. Losing a race to another writer is reported as an invalid
// transition. On success o reflects the new status.
func (s *Service) Transition(ctx context.Context, o *Order, next Status, at time.Time) error {
	if !o.CanTransitionTo(next) {
		return o.TransitionError(next)
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, next, at)
	if err != nil {
		return err
	}
	if !ok {
		return o.TransitionError(next)
	}
	o.Status = next
	o.UpdatedAt = at
	return nil
}
