package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const AggregateType = "Wallet"

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

type TransactionType string

const (
	Credit TransactionType = "credit"
	Debit  TransactionType = "debit"
)

type Transaction struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Type      TransactionType `json:"type" db:"type"`
	Reason    string          `json:"reason" db:"reason"`
	OrderID   string          `json:"order_id,omitempty" db:"order_id"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Signed returns the amount with debits negative.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Debit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Wallet holds a balance that always equals the signed sum of its
// transactions, oldest first.
type Wallet struct {
	UserID       string          `json:"user_id"`
	Balance      decimal.Decimal `json:"balance"`
	Transactions []Transaction   `json:"transactions"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Store persists wallets. Credit creates the wallet on first use. Debit
// applies only when the balance covers the amount and reports whether it did.
type Store interface {
	Get(ctx context.Context, userID string) (*Wallet, error)
	Credit(ctx context.Context, txn Transaction) error
	Debit(ctx context.Context, txn Transaction) (bool, error)
}
