// Package middleware provides Gin HTTP middleware for authentication,
// authorization, rate limiting, security headers, and audit logging.
//
// Middleware ordering matters and is enforced in router.go:
//
//	RequestID → Metrics → Security → [per-group: RateLimit + auth] → Audit → Handler
//
// Security headers run first so they appear on all responses including errors.
// The account and admin groups rate limit by client IP before authentication
// to blunt credential stuffing; the freeradius group rate limits after
// organization auth so budgets are per tenant rather than per NAS address.
// OrgAuth populates the organization context for NAS-facing endpoints;
// SlugDispatch resolves the organization for slug-addressed account endpoints
// before any other processing. Audit logging runs last so only requests that
// made it through authorization are recorded as successful actions.
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/auth"
	"github.com/radius-gateway/radius-gateway/internal/crypto"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
	"github.com/radius-gateway/radius-gateway/internal/telemetry"
	"github.com/radius-gateway/radius-gateway/internal/tokencache"
)

// OrgAuthMiddleware authenticates the calling organization for NAS-facing
// endpoints. Credentials arrive either as query parameters (?uuid=...&token=...)
// or as a three-part Authorization header ("<scheme> <uuid> <token>"); the
// scheme is not checked, only the structure.
//
// The token is validated against the token cache first and against the
// credential store on a cache miss. The cache is not authoritative: a cache
// backend error is treated as a miss, while a credential store error rejects
// the request. Authentication never falls open.
//
// A request whose body explicitly sets an "organization" field is rejected
// before any lookup — the organization derives only from the credential. The
// body is restored so downstream handlers can still bind it.
func OrgAuthMiddleware(settingsRepo *repositories.RadiusSettingsRepository, orgRepo *repositories.OrganizationRepository, cache tokencache.Cache, cipher *crypto.TokenCipher) gin.HandlerFunc {
	return func(c *gin.Context) {
		setsOrg, err := bodySetsOrganization(c)
		if err != nil {
			slog.Error("org auth: failed to inspect request body", "error", err)
			rejectOrgAuth(c)
			return
		}
		if setsOrg {
			slog.Warn("org auth: request body attempts to set organization explicitly",
				"path", c.Request.URL.Path, "ip", c.ClientIP())
			rejectOrgAuth(c)
			return
		}

		orgUUID, token, parseErr := extractOrgCredentials(c)
		if parseErr != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "invalid authorization header",
			})
			return
		}
		if orgUUID == "" || token == "" {
			rejectOrgAuth(c)
			return
		}

		ctx := c.Request.Context()

		// Cache lookup is per organization key. A backend error degrades to a
		// miss; only the credential store can reject.
		cached, hit, cacheErr := cache.Get(ctx, orgUUID)
		if cacheErr != nil {
			slog.Warn("org auth: token cache unavailable, falling back to store", "error", cacheErr)
			hit = false
		}

		if hit {
			telemetry.TokenCacheRequestsTotal.WithLabelValues("hit").Inc()
			if !auth.SecureCompare(token, cached) {
				rejectOrgAuth(c)
				return
			}
		} else {
			telemetry.TokenCacheRequestsTotal.WithLabelValues("miss").Inc()
			stored, lookupErr := lookupOrgToken(c, orgUUID, settingsRepo, orgRepo, cipher)
			if lookupErr != nil {
				slog.Error("org auth: credential store lookup failed", "organization_id", orgUUID, "error", lookupErr)
				rejectOrgAuth(c)
				return
			}
			if stored == "" || !auth.SecureCompare(token, stored) {
				rejectOrgAuth(c)
				return
			}
			if setErr := cache.Set(ctx, orgUUID, stored); setErr != nil {
				slog.Warn("org auth: failed to populate token cache", "organization_id", orgUUID, "error", setErr)
			}
		}

		telemetry.AuthAttemptsTotal.WithLabelValues("organization", "success").Inc()
		c.Set("organization_id", orgUUID)
		c.Set("auth_method", "org_token")
		c.Next()
	}
}

// rejectOrgAuth aborts with the generic credential failure. The message never
// reveals which part of the check failed.
func rejectOrgAuth(c *gin.Context) {
	telemetry.AuthAttemptsTotal.WithLabelValues("organization", "failure").Inc()
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "authentication failed",
	})
}

// extractOrgCredentials pulls the organization identifier and token from the
// query string or, failing that, from the Authorization header. A header
// present but structurally malformed returns auth.ErrParse so the caller can
// answer 400 instead of the generic 401.
func extractOrgCredentials(c *gin.Context) (orgUUID, token string, err error) {
	orgUUID = c.Query("uuid")
	token = c.Query("token")
	if orgUUID != "" && token != "" {
		return orgUUID, token, nil
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		return "", "", nil
	}
	return auth.ParseOrgAuthorizationHeader(header)
}

// lookupOrgToken reads the authoritative token for an organization: the org
// must exist and be active, and its radius settings row holds the token
// ciphertext. Returns "" when the organization resolves to nothing; any error
// is a store failure the caller must treat as a rejection.
func lookupOrgToken(c *gin.Context, orgUUID string, settingsRepo *repositories.RadiusSettingsRepository, orgRepo *repositories.OrganizationRepository, cipher *crypto.TokenCipher) (string, error) {
	ctx := c.Request.Context()

	org, err := orgRepo.GetByID(ctx, orgUUID)
	if err != nil {
		return "", err
	}
	if org == nil || !org.IsActive {
		return "", nil
	}

	settings, err := settingsRepo.GetByOrganizationID(ctx, orgUUID)
	if err != nil {
		return "", err
	}
	if settings == nil {
		return "", nil
	}

	return cipher.Open(settings.TokenCipher)
}

// bodySetsOrganization reports whether the request body explicitly carries an
// "organization" field. The body is read in full and restored, so downstream
// binding still works. JSON objects, urlencoded forms, and multipart forms
// are all inspected; other content types pass.
func bodySetsOrganization(c *gin.Context) (bool, error) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return false, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return false, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	contentType := c.ContentType()
	mediaType, _, _ := mime.ParseMediaType(contentType)

	switch mediaType {
	case "application/json":
		var fields map[string]json.RawMessage
		if jsonErr := json.Unmarshal(body, &fields); jsonErr != nil {
			// Not an object; binding will produce the real error downstream.
			return false, nil
		}
		_, present := fields["organization"]
		return present, nil

	case "application/x-www-form-urlencoded":
		values, parseErr := url.ParseQuery(string(body))
		if parseErr != nil {
			return false, nil
		}
		_, present := values["organization"]
		return present, nil

	case "multipart/form-data":
		// Field headers inside a multipart body carry the literal
		// `name="organization"`; scanning for it avoids re-parsing the
		// whole form just to reject one key.
		return bytes.Contains(body, []byte(`name="organization"`)), nil
	}

	return false, nil
}
