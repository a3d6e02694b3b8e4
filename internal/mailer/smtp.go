package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

const (
	DefaultSMTPTimeout = 30 * time.Second
	implicitTLSPort    = 465
)

// SMTPTransport sends messages through the account's SMTP server. Port 465
// dials implicit TLS; any other port upgrades with STARTTLS when offered.
type SMTPTransport struct {
	Timeout     time.Duration
	Attachments *AttachmentLoader
	// Now is used for the Date header.
	Now func() time.Time
}

func NewSMTPTransport(timeout time.Duration) *SMTPTransport {
	if timeout <= 0 {
		timeout = DefaultSMTPTimeout
	}
	return &SMTPTransport{
		Timeout:     timeout,
		Attachments: NewAttachmentLoader(timeout),
		Now:         time.Now,
	}
}

// UsesImplicitTLS reports whether the connection must be TLS from the first byte.
func UsesImplicitTLS(port int) bool {
	return port == implicitTLSPort
}

func (t *SMTPTransport) Send(ctx context.Context, cfg SMTPConfig, msg *Message) error {
	if cfg.Host == "" {
		return sendError(ErrNoSMTPHost)
	}
	if err := msg.Validate(); err != nil {
		return sendError(err)
	}

	var files []File
	if len(msg.Attachments) > 0 {
		loader := t.Attachments
		if loader == nil {
			loader = NewAttachmentLoader(t.Timeout)
		}
		var err error
		if files, err = loader.LoadAll(ctx, msg.Attachments); err != nil {
			return sendError(err)
		}
	}

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	raw, err := BuildMessage(msg, files, now())
	if err != nil {
		return sendError(fmt.Errorf("failed to build message: %w", err))
	}

	if err := t.deliver(ctx, cfg, msg, raw); err != nil {
		return sendError(err)
	}
	return nil
}

func (t *SMTPTransport) deliver(ctx context.Context, cfg SMTPConfig, msg *Message, raw []byte) error {
	client, err := t.dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if !UsesImplicitTLS(cfg.Port) {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}

	if cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
				return fmt.Errorf("auth: %w", err)
			}
		}
	}

	if err := client.Mail(msg.FromEmail); err != nil {
		return err
	}
	if err := client.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (t *SMTPTransport) dial(ctx context.Context, cfg SMTPConfig) (*smtp.Client, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultSMTPTimeout
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{Timeout: timeout}

	var (
		conn net.Conn
		err  error
	)
	if UsesImplicitTLS(cfg.Port) {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: cfg.Host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

var _ Transport = (*SMTPTransport)(nil)
