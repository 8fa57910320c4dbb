// Package mail is the outbound email collaborator. Only event handlers send
// mail; a send failure is logged by the event bus and never fails the
// command that triggered it.
package mail

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Message is one HTML email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig configures the SMTP sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type smtpSender struct {
	cfg SMTPConfig
}

// NewSMTPSender returns a Sender speaking plain-auth SMTP.
func NewSMTPSender(cfg SMTPConfig) Sender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(_ context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient required")
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	if err := smtp.SendMail(addr, auth, msg.From, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

type logSender struct {
	logger *log.Logger
}

// NewLogSender returns a Sender that only logs, for development setups
// without SMTP credentials.
func NewLogSender(logger *log.Logger) Sender {
	if logger == nil {
		logger = log.Default()
	}
	return &logSender{logger: logger}
}

func (s *logSender) Send(_ context.Context, msg Message) error {
	s.logger.Printf("mail (dry-run) to=%s subject=%q", msg.To, msg.Subject)
	return nil
}
