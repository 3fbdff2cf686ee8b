// Package sms delivers phone verification codes. Delivery is abstracted
// behind the Sender interface; the console backend logs the message instead
// of sending it and is the only backend shipped today. Real gateways (Twilio,
// SNS) plug in behind the same interface without touching the handlers.
package sms

import (
	"context"
	"fmt"
	"log/slog"
)

// Sender delivers a single SMS message
type Sender interface {
	// Send delivers a message to an E.164 phone number
	Send(ctx context.Context, phoneNumber, message string) error
}

// New creates the Sender for the configured backend
func New(backend string) (Sender, error) {
	switch backend {
	case "console":
		return NewConsoleSender(), nil
	default:
		return nil, fmt.Errorf("unknown sms backend: %s", backend)
	}
}

// ConsoleSender logs messages instead of delivering them. Development only.
type ConsoleSender struct{}

// NewConsoleSender creates a console SMS sender
func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

// Send logs the message at INFO level
func (s *ConsoleSender) Send(_ context.Context, phoneNumber, message string) error {
	slog.Info("sms message (console backend)",
		"to", phoneNumber,
		"message", message,
	)
	return nil
}
