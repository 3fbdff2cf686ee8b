// Package mail delivers transactional email: verification links, password
// reset links, and batch notifications. Delivery is abstracted behind the
// Sender interface so handlers never know which backend is configured. The
// console backend logs the message instead of sending it and is the default
// for development; the smtp backend speaks to a real mail server.
package mail

import (
	"context"
	"fmt"

	"github.com/radius-gateway/radius-gateway/internal/config"
)

// Sender delivers a single email message
type Sender interface {
	// Send delivers a plain-text message to a single recipient
	Send(ctx context.Context, to, subject, body string) error
}

// New creates the Sender for the configured backend
func New(cfg *config.MailConfig) (Sender, error) {
	switch cfg.Backend {
	case "console":
		return NewConsoleSender(cfg.From), nil
	case "smtp":
		return NewSMTPSender(cfg), nil
	default:
		return nil, fmt.Errorf("unknown mail backend: %s", cfg.Backend)
	}
}
