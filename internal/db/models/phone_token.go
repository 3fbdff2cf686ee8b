// Package models - phone_token.go defines the SMS verification code record.
package models

import "time"

// PhoneToken is a short-lived numeric code sent to a user's phone. A code is
// bounded both by valid_until and by max_attempts; exceeding either makes it
// unusable and the user must request a new one.
type PhoneToken struct {
	ID             string
	UserID         string
	OrganizationID string
	Code           string
	Attempts       int
	MaxAttempts    int
	ValidUntil     time.Time
	PhoneNumber    string // The number the code was sent to (may differ from the user's current one during a change flow)
	Verified       bool
	CreatedAt      time.Time
}

// IsValid reports whether the code can still be attempted.
func (t *PhoneToken) IsValid(now time.Time) bool {
	return !t.Verified && t.Attempts < t.MaxAttempts && now.Before(t.ValidUntil)
}
