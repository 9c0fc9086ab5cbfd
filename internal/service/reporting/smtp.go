package reporting

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/kotshq/call-insights/internal/infrastructure/config"
)

// SMTPSender delivers reports through a plain mail relay, used for test
// emails and as a fallback when the email API is not configured. It first
// tries STARTTLS on the configured port, then implicit TLS on 465.
// Attachments are not supported over this path and are silently dropped.
type SMTPSender struct {
	logger   *slog.Logger
	host     string
	port     int
	sender   string
	password string
}

func NewSMTPSender(cfg config.SMTPConfig, logger *slog.Logger) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Sender == "" || cfg.Password == "" {
		return nil, fmt.Errorf("smtp configuration incomplete")
	}
	return &SMTPSender{
		logger:   logger,
		host:     cfg.Host,
		port:     cfg.Port,
		sender:   cfg.Sender,
		password: cfg.Password,
	}, nil
}

// Send delivers the message. The smtp package offers no context support, so
// cancellation is bounded by the dial and protocol timeouts only.
func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	payload := s.encode(msg)
	auth := smtp.PlainAuth("", s.sender, s.password, s.host)

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	err := smtp.SendMail(addr, auth, s.sender, []string{msg.To}, payload)
	if err == nil {
		s.logger.Info("report sent via smtp", "to", msg.To, "mode", "starttls")
		return nil
	}

	s.logger.Warn("starttls delivery failed, retrying over implicit tls", "error", err)
	if tlsErr := s.sendTLS(msg.To, payload, auth); tlsErr != nil {
		return fmt.Errorf("smtp delivery failed: %w", tlsErr)
	}

	s.logger.Info("report sent via smtp", "to", msg.To, "mode", "tls")
	return nil
}

// sendTLS dials port 465 with an implicit TLS session.
func (s *SMTPSender) sendTLS(to string, payload []byte, auth smtp.Auth) error {
	addr := net.JoinHostPort(s.host, "465")
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.host})
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return err
	}
	if err := client.Mail(s.sender); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}

func (s *SMTPSender) encode(msg Message) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", s.sender)
	fmt.Fprintf(&sb, "To: %s\r\n", msg.To)
	fmt.Fprintf(&sb, "Subject: %s\r\n", msg.Subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(msg.HTML)
	return []byte(sb.String())
}
