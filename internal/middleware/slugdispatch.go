// slugdispatch.go resolves the :slug path parameter on account endpoints to an
// organization before any other processing runs.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
)

// SlugDispatchMiddleware resolves the organization named by the :slug route
// parameter and stores it in the request context. An unknown or inactive slug
// terminates the request with 404 before request bodies are parsed or any
// credential work happens. Handlers downstream read "organization" (the full
// row) or "organization_id".
func SlugDispatchMiddleware(orgRepo *repositories.OrganizationRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		if slug == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		org, err := orgRepo.GetBySlug(c.Request.Context(), slug)
		if err != nil {
			slog.Error("slug dispatch: organization lookup failed", "slug", slug, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if org == nil || !org.IsActive {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		c.Set("organization", org)
		c.Set("organization_id", org.ID)
		c.Set("organization_slug", org.Slug)
		c.Next()
	}
}
