// Package notify delivers outbound messages.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/config"
)

// ErrDelivery wraps every failure to hand a message to the transport.
var ErrDelivery = errors.New("notification delivery failed")

// Message is a single HTML email.
type Message struct {
	To       []string
	Subject  string
	HTMLBody string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender picks SMTP when a mail server is configured and logging otherwise.
func NewSender(cfg config.NotificationConfig, logger *zap.Logger) Sender {
	if cfg.SMTPEnabled() {
		return NewSMTPSender(cfg)
	}
	logger.Warn("MAIL_SERVER not provided; notifications will be logged only")
	return NewLogSender(logger)
}

// SMTPSender sends through a plain SMTP relay with optional PLAIN auth.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg config.NotificationConfig) *SMTPSender {
	s := &SMTPSender{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		from: cfg.MailFrom,
		send: smtp.SendMail,
	}
	if cfg.SMTPUsername != "" {
		s.auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.addr, s.auth, s.from, msg.To, buildMIME(s.from, msg)); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

func buildMIME(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.HTMLBody)
	return []byte(b.String())
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	s.logger.Info("notification",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.HTMLBody)),
	)
	return nil
}

// RecordingSender keeps every message in memory. Set Err to simulate outages.
type RecordingSender struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (s *RecordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, s.Err)
	}
	s.messages = append(s.messages, msg)
	return nil
}

// Messages returns a copy of what was sent so far.
func (s *RecordingSender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SentTo returns the subjects of messages addressed to email.
func (s *RecordingSender) SentTo(email string) []string {
	var subjects []string
	for _, m := range s.Messages() {
		for _, to := range m.To {
			if strings.EqualFold(to, email) {
				subjects = append(subjects, m.Subject)
				break
			}
		}
	}
	return subjects
}
