// Package models - user_token.go defines the per-(user, organization) opaque credential
// returned by registration and login.
package models

import "time"

// UserAuthToken is the opaque credential a user presents as
// "Authorization: Bearer <key>" on the slug-dispatched account endpoints.
// One token exists per (user, organization) pair; repeated logins reuse it.
// The full key is stored AES-GCM encrypted (key_cipher) so get-or-create
// issuance can hand the existing key back; key_prefix (first 10 characters)
// is the indexed lookup column used during authentication.
type UserAuthToken struct {
	ID             string
	UserID         string
	OrganizationID string
	KeyPrefix      string
	KeyCipher      string
	CreatedAt      time.Time
	LastUsedAt     *time.Time
	ExpiresAt      *time.Time // nil means no expiry
}

// IsExpired reports whether the token has an expiry in the past.
func (t *UserAuthToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}
