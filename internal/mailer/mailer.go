// Package mailer composes and delivers the access request and approval
// emails.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// DefaultFrom is the sender used when none is configured.
const DefaultFrom = "Portfolio Access <onboarding@resend.dev>"

var ErrNoRecipient = errors.New("message has no recipient")

// Message is one outbound email.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a message and returns its message id.
type Sender interface {
	Send(ctx context.Context, m Message) (string, error)
}

// SMTPConfig holds the outbound SMTP settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers mail through an SMTP relay with gomail.
type SMTPSender struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
	logger *slog.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	if cfg.From == "" {
		cfg.From = DefaultFrom
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

// Send dials the relay and delivers m. ctx bounds the whole exchange; a
// cancelled send may still complete on the relay.
func (s *SMTPSender) Send(ctx context.Context, m Message) (string, error) {
	if m.To == "" {
		return "", ErrNoRecipient
	}
	from := m.From
	if from == "" {
		from = s.cfg.From
	}
	id := newMessageID(from)

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetHeader("Message-ID", id)
	msg.SetDateHeader("Date", time.Now())
	if m.ReplyTo != "" {
		msg.SetHeader("Reply-To", m.ReplyTo)
	}
	if m.Text != "" {
		msg.SetBody("text/plain", m.Text)
		msg.AddAlternative("text/html", m.HTML)
	} else {
		msg.SetBody("text/html", m.HTML)
	}

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("send via %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
		}
	case <-ctx.Done():
		return "", fmt.Errorf("send via %s:%d: %w", s.cfg.Host, s.cfg.Port, ctx.Err())
	}
	s.logger.Info("email sent", "to", m.To, "subject", m.Subject, "message_id", id)
	return id, nil
}

// LogSender logs messages instead of sending them. It is used in dev mode.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, m Message) (string, error) {
	if m.To == "" {
		return "", ErrNoRecipient
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := newMessageID(m.From)
	logger.Info("email (not sent)", "to", m.To, "subject", m.Subject, "message_id", id)
	return id, nil
}

func newMessageID(from string) string {
	domain := "foliogate.local"
	if addr, err := mail.ParseAddress(from); err == nil {
		if at := strings.LastIndex(addr.Address, "@"); at >= 0 {
			domain = addr.Address[at+1:]
		}
	}
	return "<" + uuid.NewString() + "@" + domain + ">"
}

// WithTimeout bounds every Send on s by d. A zero d returns s unchanged.
func WithTimeout(s Sender, d time.Duration) Sender {
	if d <= 0 {
		return s
	}
	return timeoutSender{next: s, timeout: d}
}

type timeoutSender struct {
	next    Sender
	timeout time.Duration
}

func (t timeoutSender) Send(ctx context.Context, m Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Send(ctx, m)
}
