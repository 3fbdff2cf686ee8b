// organizations.go implements organization provisioning, listing, and
// organization-token rotation for the admin surface.
package admin

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/radius-gateway/radius-gateway/internal/auth"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
	"github.com/radius-gateway/radius-gateway/internal/validation"
)

type createOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug"`
}

// @Summary      List organizations
// @Description  Get a paginated list of all organizations.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        page      query  int  false  "Page number (default 1)"
// @Param        per_page  query  int  false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "organizations, pagination: {page, per_page, total}"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/organizations [get]
// ListOrganizationsHandler lists all organizations with pagination.
// Implements: GET /api/v1/admin/organizations?page=1&per_page=20
func (h *Handlers) ListOrganizationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

		if page < 1 {
			page = 1
		}
		if perPage < 1 || perPage > 100 {
			perPage = 20
		}

		offset := (page - 1) * perPage

		orgs, err := h.orgRepo.List(c.Request.Context(), perPage, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list organizations"})
			return
		}

		total, err := h.orgRepo.Count(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count organizations"})
			return
		}

		list := make([]gin.H, 0, len(orgs))
		for _, org := range orgs {
			list = append(list, orgResponse(org))
		}

		c.JSON(http.StatusOK, gin.H{
			"organizations": list,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get organization
// @Description  Retrieve a specific organization by its ID, including member count and the last token rotation time.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  string  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "organization, member_count, radius_settings: {token_rotated_at}"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/organizations/{org_id} [get]
// GetOrganizationHandler retrieves one organization. The token itself is
// never returned here; only its last rotation timestamp is.
// Implements: GET /api/v1/admin/organizations/:org_id
func (h *Handlers) GetOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		orgID := c.Param("org_id")

		org, err := h.orgRepo.GetByID(ctx, orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve organization"})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		memberCount, err := h.orgRepo.CountMembers(ctx, orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count organization members"})
			return
		}

		response := gin.H{
			"organization": orgResponse(org),
			"member_count": memberCount,
		}

		settings, err := h.settingsRepo.GetByOrganizationID(ctx, orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve radius settings"})
			return
		}
		if settings != nil {
			response["radius_settings"] = gin.H{
				"token_rotated_at": settings.TokenRotatedAt,
			}
		}

		c.JSON(http.StatusOK, response)
	}
}

// @Summary      Create organization
// @Description  Provisions a new organization together with its radius settings. The generated organization token is returned in plaintext exactly once; afterwards only rotation produces a new one.
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Success      201  {object}  map[string]interface{}  "organization, token"
// @Failure      400  {object}  map[string]interface{}  "Validation error or duplicate name/slug"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/organizations [post]
// CreateOrganizationHandler provisions an organization and its radius
// settings in one transaction. The slug defaults to a slugified name when
// the request omits it. The plaintext token appears only in this response;
// the stored copy is AES-GCM encrypted.
// Implements: POST /api/v1/admin/organizations
func (h *Handlers) CreateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		slug := req.Slug
		if slug == "" {
			slug = validation.Slugify(req.Name)
		}
		if err := validation.ValidateSlug(slug); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()

		existing, err := h.orgRepo.GetByName(ctx, req.Name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check organization name"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "organization name already exists"})
			return
		}

		existing, err = h.orgRepo.GetBySlug(ctx, slug)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check organization slug"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "organization slug already exists"})
			return
		}

		token, err := auth.GenerateOrgToken()
		if err != nil {
			slog.Error("create organization: token generation failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate organization token"})
			return
		}
		tokenCipher, err := h.cipher.Seal(token)
		if err != nil {
			slog.Error("create organization: token encryption failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encrypt organization token"})
			return
		}

		tx, err := h.db.BeginTx(ctx, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
			return
		}
		defer tx.Rollback()

		org := &models.Organization{
			Name:     req.Name,
			Slug:     slug,
			IsActive: true,
		}
		if err := h.orgRepo.CreateTx(ctx, tx, org); err != nil {
			slog.Error("create organization: insert failed", "name", req.Name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
			return
		}

		settings := &models.OrganizationRadiusSettings{
			OrganizationID: org.ID,
			TokenCipher:    tokenCipher,
		}
		if err := h.settingsRepo.CreateTx(ctx, tx, settings); err != nil {
			slog.Error("create organization: radius settings insert failed",
				"organization_id", org.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
			return
		}

		slog.Info("organization provisioned", "organization_id", org.ID, "slug", org.Slug)
		c.JSON(http.StatusCreated, gin.H{
			"organization": orgResponse(org),
			"token":        token,
		})
	}
}

// @Summary      Rotate organization token
// @Description  Generates a fresh organization token, replaces the stored ciphertext, and invalidates the token cache entry so the old token stops working immediately. The new token is returned in plaintext exactly once.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        org_id  path  string  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "token"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organization or radius settings not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/organizations/{org_id}/radius-settings/rotate [post]
// RotateTokenHandler replaces the organization token. The cache entry is
// deleted after the persistent record is updated; if the delete fails the
// stale token survives at most the cache TTL.
// Implements: POST /api/v1/admin/organizations/:org_id/radius-settings/rotate
func (h *Handlers) RotateTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		orgID := c.Param("org_id")

		org, err := h.orgRepo.GetByID(ctx, orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve organization"})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		token, err := auth.GenerateOrgToken()
		if err != nil {
			slog.Error("rotate token: generation failed", "organization_id", orgID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate organization token"})
			return
		}
		tokenCipher, err := h.cipher.Seal(token)
		if err != nil {
			slog.Error("rotate token: encryption failed", "organization_id", orgID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encrypt organization token"})
			return
		}

		if err := h.settingsRepo.RotateToken(ctx, orgID, tokenCipher); err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Radius settings not found"})
				return
			}
			slog.Error("rotate token: update failed", "organization_id", orgID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rotate organization token"})
			return
		}

		if h.cache != nil {
			if err := h.cache.Delete(ctx, orgID); err != nil {
				// The old token keeps working until the entry expires.
				slog.Warn("rotate token: cache invalidation failed",
					"organization_id", orgID, "error", err)
			}
		}

		slog.Info("organization token rotated", "organization_id", orgID)
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

func orgResponse(org *models.Organization) gin.H {
	return gin.H{
		"id":         org.ID,
		"name":       org.Name,
		"slug":       org.Slug,
		"is_active":  org.IsActive,
		"created_at": org.CreatedAt,
		"updated_at": org.UpdatedAt,
	}
}
