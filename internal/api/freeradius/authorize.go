// Package freeradius implements the HTTP endpoints a FreeRADIUS server calls through
// its rlm_rest module: authorize, post-auth logging, and accounting. Every route sits
// behind the organization-token middleware, so handlers trust the organization_id
// context key and never accept tenant identity from the request body. Responses follow
// what rlm_rest expects: JSON control attributes on authorize, bare status codes on
// the write endpoints.
package freeradius

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/auth"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
	"github.com/radius-gateway/radius-gateway/internal/telemetry"
)

// FreeRADIUS's rlm_rest module reads the control:Auth-Type attribute from the
// response body; the status code only matters insofar as 401 short-circuits
// the reply parsing into a reject.
var (
	authorizeAccept = gin.H{"control:Auth-Type": "Accept"}
	authorizeReject = gin.H{"control:Auth-Type": "Reject"}
)

type authorizeRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password"`
}

// @Summary      Authorize a RADIUS access request
// @Description  Checks username/password for the calling organization. Responds with control:Auth-Type Accept or Reject in the body for FreeRADIUS's rlm_rest module.
// @Tags         FreeRADIUS
// @Security     OrgToken
// @Accept       json
// @Produce      json
// @Param        username  formData  string  true   "Username or email"
// @Param        password  formData  string  false  "Cleartext password"
// @Success      200  {object}  map[string]interface{}  "control:Auth-Type: Accept"
// @Failure      401  {object}  map[string]interface{}  "control:Auth-Type: Reject"
// @Router       /api/v1/freeradius/authorize/ [post]
// AuthorizeHandler decides whether FreeRADIUS should accept a user's
// credentials. A user authorizes only when the account exists, is active,
// belongs to the calling organization, and the password matches. Every
// failure answers the identical reject, so callers cannot distinguish an
// unknown user from a non-member or a wrong password.
// Implements: POST /api/v1/freeradius/authorize/
func AuthorizeHandler(db *sql.DB) gin.HandlerFunc {
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)

	return func(c *gin.Context) {
		var req authorizeRequest
		if err := c.ShouldBind(&req); err != nil {
			rejectAuthorize(c)
			return
		}

		ctx := c.Request.Context()
		orgID := c.GetString("organization_id")

		user, err := userRepo.GetByUsernameOrEmail(ctx, req.Username)
		if err != nil {
			slog.Error("authorize: user lookup failed", "error", err)
			rejectAuthorize(c)
			return
		}
		if user == nil || !user.IsActive {
			rejectAuthorize(c)
			return
		}

		// A user outside the calling organization is handled exactly like a
		// missing user.
		member, err := orgRepo.CheckMembership(ctx, orgID, user.ID)
		if err != nil {
			slog.Error("authorize: membership check failed",
				"user_id", user.ID, "organization_id", orgID, "error", err)
			rejectAuthorize(c)
			return
		}
		if !member {
			rejectAuthorize(c)
			return
		}

		if !auth.CheckPassword(req.Password, user.PasswordHash) {
			rejectAuthorize(c)
			return
		}

		telemetry.RadiusAuthorizeDecisionsTotal.WithLabelValues("accept").Inc()
		c.JSON(http.StatusOK, authorizeAccept)
	}
}

func rejectAuthorize(c *gin.Context) {
	telemetry.RadiusAuthorizeDecisionsTotal.WithLabelValues("reject").Inc()
	c.JSON(http.StatusUnauthorized, authorizeReject)
}
