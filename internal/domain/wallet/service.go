package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

// Get returns the user's wallet, or an empty one if none exists yet.
func (s *Service) Get(ctx context.Context, userID string) (*Wallet, error) {
	w, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrWalletNotFound) {
		return &Wallet{UserID: userID, Balance: decimal.Zero, Transactions: []Transaction{}}, nil
	}
	return w, err
}

func (s *Service) Credit(ctx context.Context, userID string, amount decimal.Decimal, reason, orderID string) (*Transaction, error) {
	txn, err := newTransaction(userID, amount, Credit, reason, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Credit(ctx, txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *Service) Debit(ctx context.Context, userID string, amount decimal.Decimal, reason, orderID string) (*Transaction, error) {
	txn, err := newTransaction(userID, amount, Debit, reason, orderID)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.Debit(ctx, txn)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientBalance
	}
	return &txn, nil
}

func newTransaction(userID string, amount decimal.Decimal, typ TransactionType, reason, orderID string) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	return Transaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Amount:    amount.Round(2),
		Type:      typ,
		Reason:    reason,
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
	}, nil
}
