// Package mailer delivers transactional email. Delivery is abstracted behind
// the Sender interface so handlers and tests never touch the provider client.
package mailer

import (
	"context"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Email is a fully-prepared message ready for delivery.
type Email struct {
	From    string
	To      []string
	Subject string
	Text    string
}

// Sender defines the minimal interface that email providers must implement.
type Sender interface {
	// Send delivers an email message. Returns an error if delivery fails.
	Send(ctx context.Context, email *Email) error
}

// ResendSender implements Sender using the Resend API.
type ResendSender struct {
	client *resend.Client
}

// NewResendSender creates a sender backed by the Resend API.
func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey)}
}

// Send implements Sender.
func (s *ResendSender) Send(ctx context.Context, email *Email) error {
	req := &resend.SendEmailRequest{
		From:    email.From,
		To:      email.To,
		Subject: email.Subject,
		Text:    email.Text,
	}
	_, err := s.client.Emails.SendWithContext(ctx, req)
	return err
}

// LogSender writes outgoing mail to the structured log instead of delivering
// it. Used in development and whenever no provider API key is configured.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, email *Email) error {
	s.Logger.InfoContext(ctx, "mail delivery skipped (no provider configured)",
		slog.String("from", email.From),
		slog.Any("to", email.To),
		slog.String("subject", email.Subject),
		slog.String("body", email.Text),
	)
	return nil
}
