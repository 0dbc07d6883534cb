package queue

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strings"
)

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (s LogSender) Send(ctx context.Context, msg EmailPayload) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "email not sent; no SMTP relay configured",
		"to", msg.RecipientEmail,
		"subject", msg.Subject,
		"email_type", msg.EmailType,
	)
	return nil
}

// SMTPSender relays messages through one SMTP server.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPSender validates addr (host:port) and prepares PLAIN auth when a
// username is given.
func NewSMTPSender(addr, from, username, password string) (*SMTPSender, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("smtp address %q: %w", addr, err)
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp sender address is required")
	}
	sender := &SMTPSender{addr: addr, from: from}
	if username != "" {
		sender.auth = smtp.PlainAuth("", username, password, host)
	}
	return sender, nil
}

// Send implements Sender. net/smtp has no context support, so ctx only
// gates the start of delivery.
func (s *SMTPSender) Send(ctx context.Context, msg EmailPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{msg.RecipientEmail}, buildMessage(s.from, msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.RecipientEmail, err)
	}
	return nil
}

func buildMessage(from string, msg EmailPayload) []byte {
	var buf bytes.Buffer
	header := func(key, value string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", key, value)
	}
	header("From", from)
	header("To", msg.RecipientEmail)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	buf.WriteString("\r\n")

	body := strings.ReplaceAll(msg.BodyText, "\r\n", "\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}
