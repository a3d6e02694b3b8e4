// Package mailer delivers rendered campaign emails over SMTP.
package mailer

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/unclebandit/outreach-backend/internal/model"
)

var (
	// ErrSendFailed wraps every delivery failure returned by a Transport.
	ErrSendFailed = errors.New("failed to send email")

	ErrNoRecipient = errors.New("email must have a recipient")
	ErrNoSender    = errors.New("email must have a sender address")
	ErrNoSMTPHost  = errors.New("smtp host is required")
	ErrAttachment  = errors.New("failed to load attachment")
)

// SMTPConfig holds the credentials of one sending account.
type SMTPConfig struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"required,min=1,max=65535"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ConfigFromAccount builds the SMTP settings of an email account.
func ConfigFromAccount(a *model.EmailAccount) SMTPConfig {
	return SMTPConfig{
		Host:     a.SMTPHost,
		Port:     a.SMTPPort,
		Username: a.SMTPUsername,
		Password: a.SMTPPassword,
	}
}

// Message is a plain-text email. The HTML part is derived from Text.
type Message struct {
	FromName    string
	FromEmail   string
	To          string
	Subject     string
	Text        string
	Attachments []model.Attachment
}

func (m *Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if strings.TrimSpace(m.FromEmail) == "" {
		return ErrNoSender
	}
	return nil
}

// From formats the sender as "Name <email>".
func (m *Message) From() string {
	addr := mail.Address{Name: m.FromName, Address: m.FromEmail}
	return addr.String()
}

// HTMLFromText converts newlines into <br> line breaks.
func HTMLFromText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\n", "<br>")
}

// Transport delivers one message with the given account credentials.
type Transport interface {
	Send(ctx context.Context, cfg SMTPConfig, msg *Message) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, cfg SMTPConfig, msg *Message) error

func (f TransportFunc) Send(ctx context.Context, cfg SMTPConfig, msg *Message) error {
	return f(ctx, cfg, msg)
}

// SendError carries the underlying delivery error. It matches ErrSendFailed
// with errors.Is and prints only the cause.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }

func (e *SendError) Is(target error) bool { return target == ErrSendFailed }

func sendError(err error) error {
	var se *SendError
	if errors.As(err, &se) {
		return err
	}
	return &SendError{Err: err}
}
