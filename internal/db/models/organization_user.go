// Package models - organization_user.go defines the user-to-organization membership row.
package models

import "time"

// OrganizationUser represents a user's membership in an organization.
// A user may belong to many organizations; AAA operations authenticated for
// organization O may only touch users holding a membership row for O.
type OrganizationUser struct {
	OrganizationID string
	UserID         string
	CreatedAt      time.Time
}

// OrganizationUserWithDetails joins membership with user columns for listings.
type OrganizationUserWithDetails struct {
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	Email          *string   `json:"email"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}
