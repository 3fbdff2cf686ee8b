// Package models - radius_settings.go defines the per-organization RADIUS settings record
// that holds the shared secret NAS devices authenticate with.
package models

import "time"

// OrganizationRadiusSettings holds the organization token used by the
// freeradius endpoints. Exactly one row exists per organization
// (UNIQUE organization_id). The token is stored AES-GCM encrypted so the
// admin surface can reveal it after provisioning; it is never exposed on
// any tenant-facing endpoint.
type OrganizationRadiusSettings struct {
	ID             string
	OrganizationID string
	TokenCipher    string // AES-GCM ciphertext of the organization token
	TokenRotatedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
