package email

import (
	"fmt"
	"net/smtp"

	"github.com/example/storefront/internal/domain/order"
)

// Sender delivers one HTML message.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	host     string
	port     int
	from     string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host string, port int, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	return s.sendMail(addr, nil, s.from, []string{to}, []byte(msg))
}

// Service renders and sends order notifications.
type Service struct {
	sender   Sender
	currency string
}

func NewService(sender Sender, currency string) *Service {
	return &Service{sender: sender, currency: currency}
}

func (s *Service) SendOrderConfirmation(to string, e order.OrderPlaced) error {
	body, err := renderOrderConfirmation(e, s.currency)
	if err != nil {
		return err
	}
	return s.sender.Send(to, fmt.Sprintf("Order confirmed: %s", e.OrderID), body)
}

func (s *Service) SendOrderCancelled(to string, e order.OrderCancelled) error {
	body, err := renderRefundNotice(refundNotice{
		Heading:  "Your order was cancelled",
		OrderID:  e.OrderID,
		Refunded: e.Refunded,
		At:       e.CancelledAt,
	}, s.currency)
	if err != nil {
		return err
	}
	return s.sender.Send(to, fmt.Sprintf("Order cancelled: %s", e.OrderID), body)
}

func (s *Service) SendOrderReturned(to string, e order.OrderReturned) error {
	body, err := renderRefundNotice(refundNotice{
		Heading:  "We received your return",
		OrderID:  e.OrderID,
		Refunded: e.Refunded,
		At:       e.ReturnedAt,
	}, s.currency)
	if err != nil {
		return err
	}
	return s.sender.Send(to, fmt.Sprintf("Return processed: %s", e.OrderID), body)
}

func (s *Service) SendStatusUpdate(to string, e order.OrderStatusChanged) error {
	body, err := renderStatusUpdate(e)
	if err != nil {
		return err
	}
	return s.sender.Send(to, fmt.Sprintf("Order %s is now %s", e.OrderID, statusLabel(e.To)), body)
}
