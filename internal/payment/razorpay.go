package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const defaultRazorpayURL = "https://api.razorpay.com/v1"

// RazorpayClient talks to the Razorpay orders API over plain HTTPS.
type RazorpayClient struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

func NewRazorpayClient(baseURL, keyID, keySecret string, timeout time.Duration) *RazorpayClient {
	if baseURL == "" {
		baseURL = defaultRazorpayURL
	}
	return &RazorpayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: timeout},
	}
}

type razorpayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (string, error) {
	if !amount.IsPositive() {
		return "", ErrInvalidAmount
	}

	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   minorUnits(amount),
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var rerr razorpayError
		_ = json.Unmarshal(raw, &rerr)
		log.Warn().Str("component", "payment").Int("status", resp.StatusCode).Str("code", rerr.Error.Code).Msg("gateway rejected order")
		return "", fmt.Errorf("%w: status %d: %s", ErrGatewayUnavailable, resp.StatusCode, rerr.Error.Description)
	}

	var out razorpayOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode gateway order: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: empty order id", ErrGatewayUnavailable)
	}
	return out.ID, nil
}

// FetchOrder reads an order back from GET /orders/{id}.
func (c *RazorpayClient) FetchOrder(ctx context.Context, gatewayOrderID string) (*Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders/"+url.PathEscape(gatewayOrderID), nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, gatewayOrderID)
	case resp.StatusCode != http.StatusOK:
		log.Warn().Str("component", "payment").Int("status", resp.StatusCode).Str("gateway_order_id", gatewayOrderID).Msg("gateway order lookup failed")
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var out razorpayOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode gateway order: %w", err)
	}
	return &Order{
		ID:       out.ID,
		Amount:   fromMinorUnits(out.Amount),
		Currency: out.Currency,
		Receipt:  out.Receipt,
	}, nil
}

func (c *RazorpayClient) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	return verify(c.keySecret, gatewayOrderID, paymentID, signature)
}
