// Package models - user.go defines the User model for gateway accounts with username,
// contact details, bcrypt password hash, and verification/activation flags.
package models

import (
	"strings"
	"time"
)

// User represents an end-user account. Users are shared across the
// deployment; tenancy is expressed through organization_users membership
// rows, never through a column on the user itself.
type User struct {
	ID            string
	Username      string  // Unique login name
	Email         *string // Nullable; unique when present
	PhoneNumber   *string // E.164; nullable
	PasswordHash  string  // bcrypt
	FirstName     string
	LastName      string
	IsActive      bool
	IsStaff       bool // Staff users may call the admin surface and download batch artifacts
	EmailVerified bool
	PhoneVerified bool
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName returns "First Last" with missing parts elided.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
