package mailer

import (
	"context"

	"github.com/subtrack/subscription-api/pkg/rabbitmq"
)

const (
	emailExchange   = "notification_events"
	emailRoutingKey = "email.reminder"
)

// EmailMessage is the payload handed to the downstream mail worker.
type EmailMessage struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

// AMQPSender publishes rendered emails to the notification exchange, where
// the mail worker picks them up for delivery.
type AMQPSender struct {
	producer *rabbitmq.EventProducer
}

// NewAMQPSender wraps an event producer as an email Sender.
func NewAMQPSender(producer *rabbitmq.EventProducer) *AMQPSender {
	return &AMQPSender{producer: producer}
}

// Send implements the Sender interface.
func (s *AMQPSender) Send(ctx context.Context, from, to, subject, htmlBody string) error {
	return s.producer.Publish(ctx, emailExchange, emailRoutingKey, EmailMessage{
		From:     from,
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	})
}
