package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/example/storefront/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, body string
}

type recordingSender struct {
	sent []sentMail
	err  error
}

func (r *recordingSender) Send(to, subject, body string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMail{to, subject, body})
	return nil
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0", "INR 0.00"},
		{"5.5", "INR 5.50"},
		{"145", "INR 145.00"},
		{"1234.5", "INR 1,234.50"},
		{"1234567.891", "INR 1,234,567.89"},
		{"-1000", "INR -1,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMoney("INR", decimal.RequireFromString(tt.amount)))
		})
	}
	assert.Equal(t, "12.00", formatMoney("", decimal.NewFromInt(12)))
}

func TestSendOrderConfirmation(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, "INR")

	err := svc.SendOrderConfirmation("ada@example.com", order.OrderPlaced{
		OrderID: "ORD-1",
		Lines: []order.Line{
			{ProductID: "p-1", Name: "Runner <Pro>", Quantity: 2, UnitPrice: decimal.NewFromInt(100), DiscountedUnitPrice: decimal.NewFromInt(80)},
			{ProductID: "p-2", Quantity: 1, UnitPrice: decimal.NewFromInt(5), DiscountedUnitPrice: decimal.NewFromInt(5)},
		},
		CouponCode:    "SAVE10",
		TotalPrice:    decimal.RequireFromString("150"),
		PaymentMethod: order.PaymentCOD,
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	mail := sender.sent[0]
	assert.Equal(t, "ada@example.com", mail.to)
	assert.Equal(t, "Order confirmed: ORD-1", mail.subject)
	assert.Contains(t, mail.body, "Runner &lt;Pro&gt;")
	assert.Contains(t, mail.body, "INR 160.00")
	assert.Contains(t, mail.body, "INR 150.00")
	assert.Contains(t, mail.body, "p-2")
	assert.Contains(t, mail.body, "Coupon SAVE10 applied")
	assert.Contains(t, mail.body, "cash on delivery")
}

func TestSendRefundNotices(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, "INR")
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, svc.SendOrderCancelled("a@example.com", order.OrderCancelled{OrderID: "ORD-2", Refunded: decimal.Zero, CancelledAt: at}))
	require.NoError(t, svc.SendOrderReturned("a@example.com", order.OrderReturned{OrderID: "ORD-3", Refunded: decimal.NewFromInt(145), ReturnedAt: at}))
	require.Len(t, sender.sent, 2)

	assert.Equal(t, "Order cancelled: ORD-2", sender.sent[0].subject)
	assert.Contains(t, sender.sent[0].body, "nothing to refund")
	assert.Equal(t, "Return processed: ORD-3", sender.sent[1].subject)
	assert.Contains(t, sender.sent[1].body, "INR 145.00 has been credited to your wallet")
	assert.Contains(t, sender.sent[1].body, "1 Mar 2026")
}

func TestSendStatusUpdate(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, "INR")

	err := svc.SendStatusUpdate("a@example.com", order.OrderStatusChanged{
		OrderID: "ORD-4", From: order.StatusPending, To: order.StatusPaymentFailed, ChangedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Order ORD-4 is now payment failed", sender.sent[0].subject)
}

func TestSendPropagatesSenderError(t *testing.T) {
	svc := NewService(&recordingSender{err: errors.New("relay down")}, "INR")
	err := svc.SendOrderCancelled("a@example.com", order.OrderCancelled{OrderID: "ORD-5"})
	assert.EqualError(t, err, "relay down")
}

func TestSMTPSender_Send(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s := NewSMTPSender("mail.local", 2525, "orders@example.com")
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, s.Send("ada@example.com", "Hello", "<p>hi</p>"))
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: orders@example.com\r\nTo: ada@example.com\r\nSubject: Hello\r\n"))
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\n<p>hi</p>"))
}
