// stats.go implements the dashboard statistics endpoint.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// StatsHandler handles stats-related API requests
type StatsHandler struct {
	db *sqlx.DB
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(database *sqlx.DB) *StatsHandler {
	return &StatsHandler{
		db: database,
	}
}

// DashboardStats represents the response for dashboard statistics
type DashboardStats struct {
	Organizations OrganizationStats `json:"organizations"`
	Users         UserStats         `json:"users"`
	Sessions      SessionStats      `json:"sessions"`
	Batches       int64             `json:"batches"`
	BatchUsers    int64             `json:"batch_users"`
}

// OrganizationStats counts tenants by activity state.
type OrganizationStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// UserStats counts accounts by state.
type UserStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
	Staff  int64 `json:"staff"`
}

// SessionStats counts accounting sessions. Active means no Stop packet has
// been recorded yet.
type SessionStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// @Summary      Get dashboard statistics
// @Description  Returns aggregated counts for the admin dashboard: organizations, users, accounting sessions, and batches.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  DashboardStats
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/stats/dashboard [get]
// GetDashboardStats returns dashboard statistics using a single database round-trip.
func (h *StatsHandler) GetDashboardStats(c *gin.Context) {
	ctx := c.Request.Context()

	query := `
		SELECT
			(SELECT COUNT(*) FROM organizations) AS org_count,
			(SELECT COUNT(*) FROM organizations WHERE is_active) AS active_org_count,
			(SELECT COUNT(*) FROM users) AS user_count,
			(SELECT COUNT(*) FROM users WHERE is_active) AS active_user_count,
			(SELECT COUNT(*) FROM users WHERE is_staff) AS staff_count,
			(SELECT COUNT(*) FROM radius_accounting) AS session_count,
			(SELECT COUNT(*) FROM radius_accounting WHERE stop_time IS NULL) AS active_session_count,
			(SELECT COUNT(*) FROM radius_batches) AS batch_count,
			(SELECT COUNT(*) FROM radius_batch_users) AS batch_user_count
	`

	var stats DashboardStats

	err := h.db.QueryRowContext(ctx, query).Scan(
		&stats.Organizations.Total,
		&stats.Organizations.Active,
		&stats.Users.Total,
		&stats.Users.Active,
		&stats.Users.Staff,
		&stats.Sessions.Total,
		&stats.Sessions.Active,
		&stats.Batches,
		&stats.BatchUsers,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
