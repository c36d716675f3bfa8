package messaging

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrInvalidPhone = errors.New("invalid_phone")
	// ErrNotDelivered is returned by senders that accept a message without
	// handing it to any channel.
	ErrNotDelivered = errors.New("not_delivered")
)

// Sender delivers one text message to a phone number. A nil error means the
// channel accepted the message.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSender only writes messages to the log. It is used when no gateway is
// configured and never reports a message as delivered.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("messaging.log")}
}

func (s *LogSender) Send(ctx context.Context, phone, message string) error {
	phone = NormalizePhone(phone)
	if phone == "" {
		return ErrInvalidPhone
	}
	s.log.Info("message not sent, no gateway configured",
		zap.String("phone", phone),
		zap.Int("length", len(message)),
	)
	return ErrNotDelivered
}

// NormalizePhone strips formatting and rewrites a leading 0 to the
// Indonesian country code, the form most WhatsApp gateways expect.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	phone := b.String()
	if strings.HasPrefix(phone, "0") {
		phone = "62" + phone[1:]
	}
	if len(phone) < 8 {
		return ""
	}
	return phone
}
