// audit.go provides Gin middleware that records authenticated write operations
// to the audit log, with optional shipping to an external collector.
package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/audit"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
	"github.com/radius-gateway/radius-gateway/internal/safego"
)

// AuditMiddleware records successful write operations to the database only.
func AuditMiddleware(auditRepo *repositories.AuditRepository) gin.HandlerFunc {
	return AuditMiddlewareWithShipper(auditRepo, nil)
}

// AuditMiddlewareWithShipper records successful write operations and forwards
// each entry to the shipper. Only requests that completed with a 2xx status
// are recorded; reads, preflight, and failures never reach the log. The write
// happens off the request goroutine so audit storage latency is invisible to
// callers.
func AuditMiddlewareWithShipper(auditRepo *repositories.AuditRepository, shipper audit.Shipper) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == "OPTIONS" || c.Request.Method == "GET" || c.Request.Method == "HEAD" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		entry := buildAuditLog(c)

		safego.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if auditRepo != nil {
				if err := auditRepo.Create(ctx, entry); err != nil {
					slog.Error("audit: failed to persist entry", "action", entry.Action, "error", err)
				}
			}

			if shipper != nil {
				if err := shipper.Ship(ctx, shipperEntry(entry)); err != nil {
					slog.Error("audit: failed to ship entry", "action", entry.Action, "error", err)
				}
			}
		})
	}
}

// buildAuditLog assembles the audit row from the completed request. Actions
// follow the "<resource>.<verb>" convention ("organization.create",
// "radius_settings.rotate", "batch.create").
func buildAuditLog(c *gin.Context) *models.AuditLog {
	ipAddress := c.ClientIP()

	entry := &models.AuditLog{
		Action:    c.Request.Method + " " + c.Request.URL.Path,
		IPAddress: &ipAddress,
		CreatedAt: time.Now(),
	}

	if userID := c.GetString("user_id"); userID != "" {
		entry.ActorUserID = &userID
	}
	if orgID := c.GetString("organization_id"); orgID != "" {
		entry.OrganizationID = &orgID
	}

	if resourceType, action, resourceID := classifyAuditTarget(c); resourceType != "" {
		entry.ResourceType = &resourceType
		entry.Action = action
		if resourceID != "" {
			entry.ResourceID = &resourceID
		}
	}

	detail := map[string]interface{}{
		"status_code": c.Writer.Status(),
	}
	if authMethod := c.GetString("auth_method"); authMethod != "" {
		detail["auth_method"] = authMethod
	}
	entry.Detail = detail

	return entry
}

// classifyAuditTarget maps the request path to a resource type, a dotted
// action name, and the affected resource's ID when the route carries one.
func classifyAuditTarget(c *gin.Context) (resourceType, action, resourceID string) {
	path := c.Request.URL.Path

	switch {
	case strings.Contains(path, "/radius-settings/rotate"):
		return "radius_settings", "radius_settings.rotate", c.Param("org_id")
	case strings.Contains(path, "/organizations"):
		return "organization", "organization." + auditVerb(c.Request.Method), c.Param("org_id")
	case strings.Contains(path, "/users"):
		return "user", "user." + auditVerb(c.Request.Method), c.Param("user_id")
	case strings.Contains(path, "/batch"):
		return "batch", "batch." + auditVerb(c.Request.Method), c.Param("batch_id")
	}

	return "", "", ""
}

func auditVerb(method string) string {
	switch method {
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	}
	return strings.ToLower(method)
}

// shipperEntry converts the stored row to the wire form the shipper sends.
func shipperEntry(entry *models.AuditLog) *audit.LogEntry {
	out := &audit.LogEntry{
		Timestamp: entry.CreatedAt,
		Action:    entry.Action,
		Metadata:  entry.Detail,
	}
	if entry.ActorUserID != nil {
		out.UserID = *entry.ActorUserID
	}
	if entry.OrganizationID != nil {
		out.OrganizationID = *entry.OrganizationID
	}
	if entry.ResourceType != nil {
		out.ResourceType = *entry.ResourceType
	}
	if entry.ResourceID != nil {
		out.ResourceID = *entry.ResourceID
	}
	if entry.IPAddress != nil {
		out.IPAddress = *entry.IPAddress
	}
	if method, ok := entry.Detail["auth_method"].(string); ok {
		out.AuthMethod = method
	}
	if code, ok := entry.Detail["status_code"].(int); ok {
		out.StatusCode = code
	}
	return out
}
