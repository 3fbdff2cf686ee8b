// session.go implements the caller's own session listing for the account package.
package account

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
)

// @Summary      List own sessions
// @Description  Returns the authenticated user's accounting sessions within the slug's organization, newest first.
// @Tags         Account
// @Security     UserToken
// @Produce      json
// @Param        slug       path   string  true   "Organization slug"
// @Param        page       query  int     false  "Page number (default 1)"
// @Param        page_size  query  int     false  "Results per page (default 20, max 100)"
// @Success      200  {object}  map[string]interface{}  "sessions, pagination"
// @Failure      401  {object}  map[string]interface{}  "Authentication failed"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/radius/organization/{slug}/account/session/ [get]
// ListSessionsHandler pages through the caller's sessions. The username
// filter is pinned to the authenticated user; there is no way to read
// someone else's traffic through this endpoint.
// Implements: GET /api/v1/radius/organization/{slug}/account/session/
func (h *Handlers) ListSessionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
		if page < 1 {
			page = 1
		}
		if pageSize < 1 || pageSize > 100 {
			pageSize = 20
		}

		ctx := c.Request.Context()
		orgID := c.GetString("organization_id")
		username := c.GetString("username")

		sessions, err := h.acctRepo.List(ctx, orgID, username, pageSize, (page-1)*pageSize)
		if err != nil {
			slog.Error("sessions: failed to list", "username", username, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
			return
		}
		total, err := h.acctRepo.Count(ctx, orgID, username)
		if err != nil {
			slog.Error("sessions: failed to count", "username", username, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
			return
		}

		results := make([]gin.H, 0, len(sessions))
		for _, s := range sessions {
			results = append(results, sessionResponse(s))
		}

		c.JSON(http.StatusOK, gin.H{
			"sessions": results,
			"pagination": gin.H{
				"page":      page,
				"page_size": pageSize,
				"total":     total,
			},
		})
	}
}

func sessionResponse(s *models.RadiusAccounting) gin.H {
	var stopTime interface{}
	if s.StopTime != nil {
		stopTime = s.StopTime.Format(time.RFC3339)
	}

	return gin.H{
		"session_id":         s.SessionID,
		"unique_id":          s.UniqueID,
		"start_time":         s.StartTime.Format(time.RFC3339),
		"stop_time":          stopTime,
		"session_time":       s.SessionTime,
		"input_octets":       s.InputOctets,
		"output_octets":      s.OutputOctets,
		"calling_station_id": s.CallingStationID,
		"terminate_cause":    s.TerminateCause,
	}
}
