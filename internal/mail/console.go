package mail

import (
	"context"
	"log/slog"
)

// ConsoleSender logs messages instead of delivering them. Development only.
type ConsoleSender struct {
	from string
}

// NewConsoleSender creates a console mail sender
func NewConsoleSender(from string) *ConsoleSender {
	return &ConsoleSender{from: from}
}

// Send logs the message at INFO level
func (s *ConsoleSender) Send(_ context.Context, to, subject, body string) error {
	slog.Info("mail message (console backend)",
		"from", s.from,
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}
