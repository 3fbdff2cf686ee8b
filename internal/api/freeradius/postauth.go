// postauth.go implements the post-authentication logging endpoint for the freeradius package.
package freeradius

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
)

type postAuthRequest struct {
	Username         string `form:"username" json:"username" binding:"required"`
	Reply            string `form:"reply" json:"reply" binding:"required"`
	CallingStationID string `form:"calling_station_id" json:"calling_station_id"`
	CalledStationID  string `form:"called_station_id" json:"called_station_id"`
}

// @Summary      Record an authentication outcome
// @Description  Stores the Access-Accept/Access-Reject outcome FreeRADIUS reports after each authentication attempt. The body is empty; FreeRADIUS ignores it.
// @Tags         FreeRADIUS
// @Security     OrgToken
// @Accept       json
// @Success      201  "Outcome recorded"
// @Failure      400  {object}  map[string]interface{}  "Missing username or reply"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/freeradius/postauth/ [post]
// PostAuthHandler records the authentication outcome FreeRADIUS reports after
// the fact. Rejected attempts are logged too; passwords never reach this
// endpoint because the rlm_rest post-auth stanza does not send them.
// Implements: POST /api/v1/freeradius/postauth/
func PostAuthHandler(db *sql.DB) gin.HandlerFunc {
	postAuthRepo := repositories.NewPostAuthRepository(db)

	return func(c *gin.Context) {
		var req postAuthRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "username and reply are required",
			})
			return
		}

		entry := &models.RadiusPostAuth{
			OrganizationID:   c.GetString("organization_id"),
			Username:         req.Username,
			Reply:            req.Reply,
			CallingStationID: req.CallingStationID,
			CalledStationID:  req.CalledStationID,
		}

		if err := postAuthRepo.Create(c.Request.Context(), entry); err != nil {
			slog.Error("postauth: failed to record outcome",
				"username", req.Username, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to record post-auth outcome",
			})
			return
		}

		c.Status(http.StatusCreated)
	}
}
