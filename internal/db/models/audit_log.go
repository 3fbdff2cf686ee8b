// Package models - audit_log.go defines the AuditLog model for recording administrative
// actions, capturing actor, action, affected resource, client IP, and arbitrary detail.
package models

import "time"

// AuditLog represents one administrative action (organization provisioning,
// token rotation, batch creation). Tenant-facing AAA traffic is not audited
// here; it lands in radius_postauth and radius_accounting.
type AuditLog struct {
	ID             int64
	ActorUserID    *string                // Nullable for system actions
	OrganizationID *string                // Nullable for deployment-wide actions
	Action         string                 // "organization.create", "radius_settings.rotate", "batch.create"
	ResourceType   *string                // "organization", "radius_settings", "batch"
	ResourceID     *string                // UUID of affected resource
	Detail         map[string]interface{} // JSONB: additional context
	IPAddress      *string                // Client IP
	CreatedAt      time.Time
}
