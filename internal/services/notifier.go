package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/desertthunder/acegen/internal/shared"
)

// SMTPNotifier delivers operator email through a configured SMTP relay.
// Implements [Notifier].
type SMTPNotifier struct {
	cfg         shared.SMTPConfig
	dialTimeout time.Duration
}

// NewSMTPNotifier creates a notifier for the given SMTP settings.
func NewSMTPNotifier(cfg shared.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, dialTimeout: 30 * time.Second}
}

// recipients splits the configured To field on commas.
func (n *SMTPNotifier) recipients() []string {
	parts := strings.Split(n.cfg.To, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// buildMessage constructs the mail message with headers.
func (n *SMTPNotifier) buildMessage(subject, body string) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("From: %s\r\n", n.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(n.recipients(), ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	return msg.String()
}

// SendEmail sends a plain text message to the configured recipients.
func (n *SMTPNotifier) SendEmail(ctx context.Context, subject, body string) error {
	to := n.recipients()
	if len(to) == 0 {
		return fmt.Errorf("%w: smtp.to is empty", shared.ErrInvalidConfig)
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	dialer := &net.Dialer{Timeout: n.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if n.cfg.StartTLS {
		tlsConfig := &tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if n.cfg.Username != "" && n.cfg.Password != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := writer.Write([]byte(n.buildMessage(subject, body))); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	// Best effort quit; the message is already accepted.
	_ = client.Quit()

	return nil
}

// NoopNotifier discards notifications. Used when crash notifications are
// disabled so callers never need a nil check.
type NoopNotifier struct{}

// SendEmail implements [Notifier] by doing nothing.
func (NoopNotifier) SendEmail(ctx context.Context, subject, body string) error {
	return nil
}
