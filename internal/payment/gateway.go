package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrPaymentVerificationFailed = errors.New("payment signature verification failed")
	ErrGatewayUnavailable        = errors.New("payment gateway unavailable")
	ErrInvalidAmount             = errors.New("payment amount must be positive")
	ErrUnknownOrder              = errors.New("gateway order not found")
)

// Order is the gateway's record of what a checkout was opened for.
type Order struct {
	ID       string
	Amount   decimal.Decimal
	Currency string
	Receipt  string
}

// Gateway is the narrow slice of the payment provider the checkout needs:
// open a provider-side order for an amount, look it up again, and check the
// signature the client brings back after paying it.
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (string, error)
	FetchOrder(ctx context.Context, gatewayOrderID string) (*Order, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

// Sign computes the hex HMAC-SHA256 of "orderID|paymentID".
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(secret, gatewayOrderID, paymentID, signature string) bool {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := Sign(secret, gatewayOrderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// fromMinorUnits is the inverse of minorUnits.
func fromMinorUnits(units int64) decimal.Decimal {
	return decimal.New(units, -2)
}

// minorUnits converts an amount to the smallest currency unit.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
