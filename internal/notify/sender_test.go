package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/certification-service/internal/config"
)

func TestSMTPSenderBuildsMessage(t *testing.T) {
	s := NewSMTPSender(config.NotificationConfig{MailFrom: "noreply@example.com", SMTPHost: "mail.local", SMTPPort: 2525})

	var gotAddr string
	var gotBody []byte
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotBody = msg
		require.Equal(t, "noreply@example.com", from)
		require.Equal(t, []string{"a@example.com"}, to)
		return nil
	}

	err := s.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Hello", HTMLBody: "<p>hi</p>"})
	require.NoError(t, err)
	require.Equal(t, "mail.local:2525", gotAddr)
	require.True(t, strings.Contains(string(gotBody), "Subject: Hello\r\n"))
	require.True(t, strings.HasSuffix(string(gotBody), "<p>hi</p>"))
}

func TestSMTPSenderWrapsFailures(t *testing.T) {
	s := NewSMTPSender(config.NotificationConfig{SMTPHost: "mail.local", SMTPPort: 25})
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }

	err := s.Send(context.Background(), Message{To: []string{"a@example.com"}})
	require.ErrorIs(t, err, ErrDelivery)
}

func TestRecordingSender(t *testing.T) {
	s := &RecordingSender{}
	require.NoError(t, s.Send(context.Background(), Message{To: []string{"A@example.com"}, Subject: "One"}))
	require.Equal(t, []string{"One"}, s.SentTo("a@example.com"))

	s.Err = errors.New("down")
	require.ErrorIs(t, s.Send(context.Background(), Message{To: []string{"a@example.com"}}), ErrDelivery)
	require.Len(t, s.Messages(), 1)
}
