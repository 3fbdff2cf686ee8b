// staff.go guards the admin surface: JWT session auth plus the staff check
// reused by staff-only tenant endpoints (batch artifact downloads).
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/auth"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
	"github.com/radius-gateway/radius-gateway/internal/telemetry"
)

// StaffJWTMiddleware authenticates "Authorization: Bearer <jwt>" session
// tokens minted by the admin login endpoint. The signature and expiry are
// checked first, then the user row is reloaded so a deactivated or demoted
// account is locked out immediately rather than at token expiry.
func StaffJWTMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := auth.ExtractBearerKey(c.GetHeader("Authorization"))
		if err != nil {
			rejectStaffAuth(c)
			return
		}

		claims, err := auth.ValidateJWT(tokenString)
		if err != nil {
			rejectStaffAuth(c)
			return
		}

		user, err := userRepo.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			slog.Error("staff auth: user lookup failed", "user_id", claims.UserID, "error", err)
			rejectStaffAuth(c)
			return
		}
		if user == nil || !user.IsActive || !user.IsStaff {
			rejectStaffAuth(c)
			return
		}

		telemetry.AuthAttemptsTotal.WithLabelValues("staff", "success").Inc()
		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("username", user.Username)
		c.Set("auth_method", "staff_jwt")
		c.Next()
	}
}

func rejectStaffAuth(c *gin.Context) {
	telemetry.AuthAttemptsTotal.WithLabelValues("staff", "failure").Inc()
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "authentication failed",
	})
}

// RequireStaff allows only staff users past. It runs after an authentication
// middleware has stored the user in the context, so it works both on the
// JWT-guarded admin surface and on user-token routes that gate individual
// operations (batch credential sheet downloads).
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("user")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication failed",
			})
			return
		}

		user, ok := value.(*models.User)
		if !ok || !user.IsStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "staff access required",
			})
			return
		}

		c.Next()
	}
}
