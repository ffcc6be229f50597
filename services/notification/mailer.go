package notification

import (
	"context"
	"sync"

	"doemais/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SMTPMailer delivers mail through an SMTP relay.
type SMTPMailer struct {
	From   string
	dialer *gomail.Dialer
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{From: from, dialer: gomail.NewDialer(host, port, user, password)}
}

// NewMailerFromConfig returns an SMTP mailer, or a logging one when SMTP_HOST is unset.
func NewMailerFromConfig(logger *zap.Logger) Mailer {
	cfg := config.AppConfig
	if cfg.SMTPHost == "" {
		return &LogMailer{Logger: logger}
	}
	return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

// Message is a mail captured by LogMailer.
type Message struct {
	To, Subject, Body string
}

// LogMailer records messages instead of sending them.
type LogMailer struct {
	Logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

func (m *LogMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	m.sent = append(m.sent, Message{To: to, Subject: subject, Body: htmlBody})
	m.mu.Unlock()
	if m.Logger != nil {
		m.Logger.Info("Mail not sent, SMTP is not configured", zap.String("to", to), zap.String("subject", subject))
	}
	return nil
}

// Sent returns the captured messages.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}
