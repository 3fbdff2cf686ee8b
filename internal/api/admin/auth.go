// auth.go implements the staff login endpoint that issues the JWT used by
// the rest of the admin surface.
package admin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/auth"
	"github.com/radius-gateway/radius-gateway/internal/telemetry"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Staff login
// @Description  Exchanges staff username/password for a JWT Bearer token. Non-staff accounts are rejected with the same generic 401 as bad credentials.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "token, expires_in"
// @Failure      401  {object}  map[string]interface{}  "Authentication failed"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/auth/login [post]
// LoginHandler authenticates a staff user and returns a signed JWT. All
// failure modes answer the same generic 401: whether the username exists,
// the password is wrong, the account is deactivated, or the account is not
// staff is not distinguishable from the response.
// Implements: POST /api/v1/admin/auth/login
func (h *Handlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			rejectStaffLogin(c)
			return
		}

		ctx := c.Request.Context()

		user, err := h.userRepo.GetByUsername(ctx, req.Username)
		if err != nil {
			slog.Error("staff login: user lookup failed", "error", err)
			rejectStaffLogin(c)
			return
		}
		if user == nil || !user.IsActive || !user.IsStaff || !auth.CheckPassword(req.Password, user.PasswordHash) {
			rejectStaffLogin(c)
			return
		}

		expiresIn := h.cfg.Auth.JWTExpiry
		if expiresIn == 0 {
			expiresIn = time.Hour
		}

		token, err := auth.GenerateJWT(user.ID, user.Username, user.IsStaff, expiresIn)
		if err != nil {
			slog.Error("staff login: failed to generate JWT", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
			slog.Warn("staff login: failed to update last_login", "user_id", user.ID, "error", err)
		}

		telemetry.AuthAttemptsTotal.WithLabelValues("staff", "success").Inc()
		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_in": int(expiresIn.Seconds()),
		})
	}
}

func rejectStaffLogin(c *gin.Context) {
	telemetry.AuthAttemptsTotal.WithLabelValues("staff", "failure").Inc()
	c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
}
