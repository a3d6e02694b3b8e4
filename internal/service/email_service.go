package service

import (
	"context"
	"fmt"

	"github.com/unclebandit/outreach-backend/internal/mailer"
)

// TestEmailRequest is a one-off send that bypasses sequences and webhooks.
type TestEmailRequest struct {
	To        string
	Subject   string
	Body      string
	FromName  string
	FromEmail string
	SMTP      mailer.SMTPConfig
}

type EmailService struct {
	Transport mailer.Transport
}

// SendTestEmail delivers the message synchronously and reports transport
// failures as "SMTP error: <message>".
func (s *EmailService) SendTestEmail(ctx context.Context, req TestEmailRequest) error {
	msg := &mailer.Message{
		FromName:  req.FromName,
		FromEmail: req.FromEmail,
		To:        req.To,
		Subject:   req.Subject,
		Text:      req.Body,
	}
	if err := s.Transport.Send(ctx, req.SMTP, msg); err != nil {
		return fmt.Errorf("SMTP error: %w", err)
	}
	return nil
}
