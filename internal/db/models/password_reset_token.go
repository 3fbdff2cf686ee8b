// Package models - password_reset_token.go defines the single-use password reset record.
package models

import "time"

// PasswordResetToken records an issued reset link. Only the SHA-256 hex of
// the mailed token is stored; the plaintext exists solely in the email.
// used_at makes the token single-use.
type PasswordResetToken struct {
	ID             string
	UserID         string
	OrganizationID string
	TokenHash      string
	ExpiresAt      time.Time
	UsedAt         *time.Time
	CreatedAt      time.Time
}

// IsUsable reports whether the token is unused and unexpired.
func (t *PasswordResetToken) IsUsable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
