// Package models - organization.go defines the Organization model representing a tenant
// in the gateway with a URL-safe slug and human-readable name.
package models

import "time"

// Organization represents a tenant. Every authenticated request belongs to
// exactly one organization, and every RADIUS record is scoped to one.
type Organization struct {
	ID        string
	Name      string // Human-readable display name (unique)
	Slug      string // URL-safe identifier used in slug-dispatched routes (unique)
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
