// usertokenauth.go authenticates user tokens on slug-dispatched account
// endpoints. Must run after SlugDispatchMiddleware.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/auth"
	"github.com/radius-gateway/radius-gateway/internal/crypto"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
	"github.com/radius-gateway/radius-gateway/internal/safego"
	"github.com/radius-gateway/radius-gateway/internal/telemetry"
)

// UserTokenAuthMiddleware authenticates "Authorization: Bearer <key>" user
// tokens. Tokens are issued per (user, organization); the presented key must
// resolve to a token for the slug-dispatched organization, the token must not
// be expired, and the user must still be an active member. Candidates are
// found by key prefix and confirmed with a constant-time comparison against
// the decrypted stored key.
//
// All failures answer the same generic 401 so callers cannot probe which
// check failed.
func UserTokenAuthMiddleware(tokenRepo *repositories.UserTokenRepository, userRepo *repositories.UserRepository, orgRepo *repositories.OrganizationRepository, cipher *crypto.TokenCipher) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.GetString("organization_id")
		if orgID == "" {
			rejectUserAuth(c)
			return
		}

		key, err := auth.ExtractBearerKey(c.GetHeader("Authorization"))
		if err != nil || len(key) < auth.KeyPrefixLength {
			rejectUserAuth(c)
			return
		}

		ctx := c.Request.Context()

		candidates, err := tokenRepo.GetByPrefix(ctx, key[:auth.KeyPrefixLength])
		if err != nil {
			slog.Error("user auth: token lookup failed", "error", err)
			rejectUserAuth(c)
			return
		}

		token := matchUserToken(candidates, key, cipher)
		if token == nil || token.OrganizationID != orgID || token.IsExpired(time.Now()) {
			rejectUserAuth(c)
			return
		}

		user, err := userRepo.GetByID(ctx, token.UserID)
		if err != nil {
			slog.Error("user auth: user lookup failed", "user_id", token.UserID, "error", err)
			rejectUserAuth(c)
			return
		}
		if user == nil || !user.IsActive {
			rejectUserAuth(c)
			return
		}

		// Membership is re-checked on every request; a token outlives the
		// membership that justified issuing it only until the next call.
		member, err := orgRepo.CheckMembership(ctx, orgID, user.ID)
		if err != nil {
			slog.Error("user auth: membership check failed", "user_id", user.ID, "organization_id", orgID, "error", err)
			rejectUserAuth(c)
			return
		}
		if !member {
			rejectUserAuth(c)
			return
		}

		// Last-used tracking is best effort and must not block the request.
		tokenID := token.ID
		safego.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tokenRepo.UpdateLastUsed(ctx, tokenID); err != nil {
				slog.Warn("user auth: failed to update token last_used_at", "token_id", tokenID, "error", err)
			}
		})

		telemetry.AuthAttemptsTotal.WithLabelValues("user", "success").Inc()
		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("username", user.Username)
		c.Set("auth_method", "user_token")
		c.Next()
	}
}

func rejectUserAuth(c *gin.Context) {
	telemetry.AuthAttemptsTotal.WithLabelValues("user", "failure").Inc()
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "authentication failed",
	})
}

// matchUserToken decrypts each candidate's stored key and compares it against
// the presented key in constant time. Prefix collisions make multiple
// candidates possible; the first key match wins.
func matchUserToken(candidates []*models.UserAuthToken, key string, cipher *crypto.TokenCipher) *models.UserAuthToken {
	for _, candidate := range candidates {
		plaintext, err := cipher.Open(candidate.KeyCipher)
		if err != nil {
			slog.Error("user auth: failed to decrypt stored token", "token_id", candidate.ID, "error", err)
			continue
		}
		if auth.SecureCompare(key, plaintext) {
			return candidate
		}
	}
	return nil
}
