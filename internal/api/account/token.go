// token.go implements user token issuance (login) and validation for the account package.
package account

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/auth"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
	"github.com/radius-gateway/radius-gateway/internal/telemetry"
)

type obtainTokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Obtain a user token
// @Description  Exchanges username/password for the caller's opaque key within the slug's organization. Repeated logins return the same key until it expires.
// @Tags         Account
// @Accept       json
// @Produce      json
// @Param        slug  path  string  true  "Organization slug"
// @Success      200  {object}  map[string]interface{}  "key"
// @Failure      400  {object}  map[string]interface{}  "User is not a member of this organization"
// @Failure      401  {object}  map[string]interface{}  "Authentication failed"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/radius/organization/{slug}/account/token/ [post]
// ObtainTokenHandler authenticates credentials and hands back the user's key
// for this organization. Bad credentials answer a generic 401. A valid user
// who is not a member gets a 400 that names the user and the organization;
// membership is an authorization question, not a credential one, and hiding
// it here would send people chasing password typos.
// Implements: POST /api/v1/radius/organization/{slug}/account/token/
func (h *Handlers) ObtainTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req obtainTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			rejectLogin(c)
			return
		}

		ctx := c.Request.Context()
		org := c.MustGet("organization").(*models.Organization)

		user, err := h.userRepo.GetByUsernameOrEmail(ctx, req.Username)
		if err != nil {
			slog.Error("login: user lookup failed", "error", err)
			rejectLogin(c)
			return
		}
		if user == nil || !user.IsActive || !auth.CheckPassword(req.Password, user.PasswordHash) {
			rejectLogin(c)
			return
		}

		member, err := h.orgRepo.CheckMembership(ctx, org.ID, user.ID)
		if err != nil {
			slog.Error("login: membership check failed",
				"user_id", user.ID, "organization_id", org.ID, "error", err)
			rejectLogin(c)
			return
		}
		if !member {
			merr := &auth.MembershipError{Username: user.Username, Organization: org.Slug}
			slog.Warn("login rejected: not a member",
				"username", user.Username, "organization", org.Slug)
			telemetry.AuthAttemptsTotal.WithLabelValues("user", "failure").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": merr.Error()})
			return
		}

		key, err := h.getOrCreateUserToken(ctx, user.ID, org.ID)
		if err != nil {
			slog.Error("login: failed to issue token", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
			return
		}

		if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
			slog.Warn("login: failed to update last_login", "user_id", user.ID, "error", err)
		}

		telemetry.AuthAttemptsTotal.WithLabelValues("user", "success").Inc()
		c.JSON(http.StatusOK, gin.H{"key": key})
	}
}

func rejectLogin(c *gin.Context) {
	telemetry.AuthAttemptsTotal.WithLabelValues("user", "failure").Inc()
	c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
}

// @Summary      Validate the presented token
// @Description  Answers 200 when the Bearer key is valid for the slug's organization. The auth middleware does the actual checking.
// @Tags         Account
// @Security     UserToken
// @Produce      json
// @Param        slug  path  string  true  "Organization slug"
// @Success      200  {object}  map[string]interface{}  "detail, username"
// @Failure      401  {object}  map[string]interface{}  "Authentication failed"
// @Router       /api/v1/radius/organization/{slug}/account/token/validate/ [get]
// ValidateTokenHandler confirms the middleware accepted the key.
// Implements: GET /api/v1/radius/organization/{slug}/account/token/validate/
func (h *Handlers) ValidateTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"detail":   "token is valid",
			"username": c.GetString("username"),
		})
	}
}

// getOrCreateUserToken returns the user's existing key for the organization
// or issues a fresh one. An expired or undecryptable stored token is replaced
// rather than surfaced; the cipher key may have rotated since issuance.
func (h *Handlers) getOrCreateUserToken(ctx context.Context, userID, orgID string) (string, error) {
	existing, err := h.tokenRepo.GetByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		if !existing.IsExpired(time.Now()) {
			key, err := h.cipher.Open(existing.KeyCipher)
			if err == nil {
				return key, nil
			}
			slog.Warn("login: stored token undecryptable, reissuing",
				"token_id", existing.ID, "error", err)
		}
		if err := h.tokenRepo.DeleteByUserAndOrg(ctx, userID, orgID); err != nil {
			return "", err
		}
	}
	return h.issueUserToken(ctx, userID, orgID)
}

// issueUserToken mints a key, encrypts it, and stores the token row.
func (h *Handlers) issueUserToken(ctx context.Context, userID, orgID string) (string, error) {
	key, keyPrefix, err := auth.GenerateUserKey()
	if err != nil {
		return "", err
	}
	keyCipher, err := h.cipher.Seal(key)
	if err != nil {
		return "", err
	}

	token := &models.UserAuthToken{
		UserID:         userID,
		OrganizationID: orgID,
		KeyPrefix:      keyPrefix,
		KeyCipher:      keyCipher,
	}
	if h.cfg.Auth.UserTokenExpiry > 0 {
		expiresAt := time.Now().Add(h.cfg.Auth.UserTokenExpiry)
		token.ExpiresAt = &expiresAt
	}

	if err := h.tokenRepo.Create(ctx, token); err != nil {
		return "", err
	}
	return key, nil
}
