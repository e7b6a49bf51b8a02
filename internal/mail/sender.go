// Package mail is the outbound delivery channel consumed by the
// notification dispatcher. Rendering beyond a minimal HTML body is a
// presentation concern outside this service.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sender delivers one message to one recipient.
type Sender interface {
	Send(ctx context.Context, toAddress, subject, htmlBody string) error
}

// SMTPSender speaks plain SMTP with an optional AUTH PLAIN login.
type SMTPSender struct {
	addr    string
	from    string
	auth    smtp.Auth
	timeout time.Duration
}

// NewSMTPSender builds the sender. user may be empty for open relays.
func NewSMTPSender(addr, from, user, password string, timeout time.Duration) *SMTPSender {
	var auth smtp.Auth
	if user != "" {
		host := addr
		if idx := strings.LastIndex(addr, ":"); idx >= 0 {
			host = addr[:idx]
		}
		auth = smtp.PlainAuth("", user, password, host)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SMTPSender{addr: addr, from: from, auth: auth, timeout: timeout}
}

// Send delivers the message, bounded by the configured timeout. The
// deadline fires through a goroutine because net/smtp.SendMail has no
// context hook of its own.
func (s *SMTPSender) Send(ctx context.Context, toAddress, subject, htmlBody string) error {
	msg := buildMessage(s.from, toAddress, subject, htmlBody)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.addr, s.auth, s.from, []string{toAddress}, msg)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", toAddress, ctx.Err())
	}
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogSender logs instead of sending. Used in development when no SMTP
// endpoint is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds the sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send records the would-be delivery.
func (s *LogSender) Send(_ context.Context, toAddress, subject, _ string) error {
	s.logger.Info("mail delivery (log sender)",
		zap.String("to", toAddress),
		zap.String("subject", subject))
	return nil
}
