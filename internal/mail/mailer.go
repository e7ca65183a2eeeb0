// Package mail delivers outbound email using the SMTP settings admins manage
// at runtime.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"seedvault/internal/models"
)

// ErrNotConfigured is returned when delivery is attempted before an admin has
// saved a usable SMTP configuration.
var ErrNotConfigured = errors.New("smtp is not configured")

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages. The delivery worker and the admin test endpoint
// both depend on this interface.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ConfigSource returns the SMTP settings to use for the next delivery. The
// mailer reads the source on every send so admin edits take effect without a
// restart.
type ConfigSource func() models.SMTPSettings

// SMTPMailer sends mail over SMTP, upgrading the connection with STARTTLS
// when the server offers it.
type SMTPMailer struct {
	source ConfigSource
}

// NewSMTPMailer constructs a mailer reading settings from source.
func NewSMTPMailer(source ConfigSource) *SMTPMailer {
	return &SMTPMailer{source: source}
}

// Send delivers one message using the current SMTP settings.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m == nil || m.source == nil {
		return ErrNotConfigured
	}
	cfg := m.source()
	if !cfg.Configured() {
		return ErrNotConfigured
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return fmt.Errorf("recipient is required")
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if cfg.Username != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write(buildMessage(cfg.From, to, msg.Subject, msg.Body)); err != nil {
		writer.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp finish body: %w", err)
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	var builder strings.Builder
	builder.WriteString("From: " + from + "\r\n")
	builder.WriteString("To: " + to + "\r\n")
	builder.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(body)
	builder.WriteString("\r\n")
	return []byte(builder.String())
}

func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	return strings.ReplaceAll(value, "\n", " ")
}
