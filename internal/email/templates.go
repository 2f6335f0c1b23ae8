package email

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/example/storefront/internal/domain/order"
	"github.com/shopspring/decimal"
)

const layoutStart = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">{{.Heading}}</h1>
	</div>
	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">{{.OrderID}}</p>
		</div>`

const layoutEnd = `
		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
		<p style="font-size: 12px; color: #999; margin-bottom: 0;">This is an automated message. Contact support if you have any questions.</p>
	</div>
</body>
</html>`

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(layoutStart + `
		<h2 style="font-size: 18px; border-bottom: 2px solid #667eea; padding-bottom: 10px;">Your order</h2>
		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left;">Item</th>
					<th style="padding: 12px; text-align: center;">Qty</th>
					<th style="padding: 12px; text-align: right;">Price</th>
					<th style="padding: 12px; text-align: right;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
			{{- range .Lines}}
				<tr>
					<td style="padding: 12px; border-bottom: 1px solid #eee;">{{.Name}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">{{.Quantity}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{money $.Currency .UnitPrice}}</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{money $.Currency .LineTotal}}</td>
				</tr>
			{{- end}}
			</tbody>
		</table>
		{{- if .CouponCode}}
		<p style="text-align: right; margin: 0;">Coupon {{.CouponCode}} applied</p>
		{{- end}}
		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Total</span>
			<span style="font-size: 24px; font-weight: bold; color: #667eea; margin-left: 10px;">{{money .Currency .Total}}</span>
		</div>
		<p>Payment: {{.PaymentMethod}}</p>` + layoutEnd))

var refundTmpl = template.Must(template.New("refund").Funcs(funcs).Parse(layoutStart + `
		<p>Processed on {{date .At}}.</p>
		{{- if .Refunded.IsPositive}}
		<p>{{money .Currency .Refunded}} has been credited to your wallet.</p>
		{{- else}}
		<p>No payment was taken for this order, so there is nothing to refund.</p>
		{{- end}}` + layoutEnd))

var statusTmpl = template.Must(template.New("status").Funcs(funcs).Parse(layoutStart + `
		<p>Your order moved from <strong>{{.From}}</strong> to <strong>{{.To}}</strong> on {{date .At}}.</p>` + layoutEnd))

var funcs = template.FuncMap{
	"money": formatMoney,
	"date":  func(t time.Time) string { return t.UTC().Format("2 Jan 2006 15:04 MST") },
}

type confirmationLine struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type confirmationView struct {
	Heading       string
	OrderID       string
	Currency      string
	Lines         []confirmationLine
	CouponCode    string
	Total         decimal.Decimal
	PaymentMethod string
}

func renderOrderConfirmation(e order.OrderPlaced, currency string) (string, error) {
	v := confirmationView{
		Heading:       "Thank you for your order",
		OrderID:       e.OrderID,
		Currency:      currency,
		CouponCode:    e.CouponCode,
		Total:         e.TotalPrice,
		PaymentMethod: paymentLabel(e.PaymentMethod),
	}
	for _, l := range e.Lines {
		name := l.Name
		if name == "" {
			name = l.ProductID
		}
		v.Lines = append(v.Lines, confirmationLine{
			Name:      name,
			Quantity:  l.Quantity,
			UnitPrice: l.DiscountedUnitPrice,
			LineTotal: l.DiscountedUnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
		})
	}
	return render(confirmationTmpl, v)
}

type refundNotice struct {
	Heading  string
	OrderID  string
	Currency string
	Refunded decimal.Decimal
	At       time.Time
}

func renderRefundNotice(n refundNotice, currency string) (string, error) {
	n.Currency = currency
	return render(refundTmpl, n)
}

func renderStatusUpdate(e order.OrderStatusChanged) (string, error) {
	return render(statusTmpl, struct {
		Heading  string
		OrderID  string
		From, To string
		At       time.Time
	}{
		Heading: "Order update",
		OrderID: e.OrderID,
		From:    statusLabel(e.From),
		To:      statusLabel(e.To),
		At:      e.ChangedAt,
	})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func statusLabel(s order.Status) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func paymentLabel(m order.PaymentMethod) string {
	switch m {
	case order.PaymentCOD:
		return "cash on delivery"
	case order.PaymentWallet:
		return "wallet"
	default:
		return "online"
	}
}

// formatMoney renders an amount with two decimals and comma separators,
// prefixed by the currency code.
func formatMoney(currency string, amount decimal.Decimal) string {
	whole, frac, _ := strings.Cut(amount.Abs().StringFixed(2), ".")

	var groups []string
	for len(whole) > 3 {
		groups = append([]string{whole[len(whole)-3:]}, groups...)
		whole = whole[:len(whole)-3]
	}
	groups = append([]string{whole}, groups...)

	str := strings.Join(groups, ",") + "." + frac
	if amount.IsNegative() {
		str = "-" + str
	}
	if currency == "" {
		return str
	}
	return currency + " " + str
}
