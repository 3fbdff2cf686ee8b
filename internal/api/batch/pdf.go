// pdf.go implements the slug-scoped credential sheet download.
package batch

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/radius-gateway/radius-gateway/internal/db/models"
)

// @Summary      Download a batch credential sheet
// @Description  Streams the stored PDF for a batch of the slug's organization. Restricted to staff users.
// @Tags         Batch
// @Security     UserToken
// @Produce      application/pdf
// @Param        slug      path  string  true  "Organization slug"
// @Param        batch_id  path  string  true  "Batch ID"
// @Success      200  {file}    file                    "application/pdf stream"
// @Failure      404  {object}  map[string]interface{}  "Unknown batch, cross-tenant batch, or no stored sheet"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/radius/organization/{slug}/batch/{batch_id}/pdf/ [get]
// DownloadPDFHandler streams a batch's stored credential sheet. The lookup is
// scoped to the slug's organization, so a batch belonging to another tenant
// answers the same 404 as a batch that never existed.
// Implements: GET /api/v1/radius/organization/{slug}/batch/{batch_id}/pdf/
func (h *Handlers) DownloadPDFHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		org := c.MustGet("organization").(*models.Organization)
		batchID := c.Param("batch_id")

		batch, err := h.batchRepo.GetByID(ctx, org.ID, batchID)
		if err != nil {
			slog.Error("batch pdf: lookup failed", "batch_id", batchID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to download credential sheet"})
			return
		}
		if batch == nil || batch.PDFPath == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}
		if h.store == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}

		reader, err := h.store.Download(ctx, *batch.PDFPath)
		if err != nil {
			slog.Error("batch pdf: download failed",
				"batch_id", batch.ID, "path", *batch.PDFPath, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to download credential sheet"})
			return
		}
		defer reader.Close()

		c.Header("Content-Disposition", `attachment; filename="`+batch.Name+`.pdf"`)
		c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, nil)
	}
}
