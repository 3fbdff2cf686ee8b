// Package pdf renders batch credential sheets. The Renderer interface is the
// only thing the batch handlers depend on; a nil Renderer means no sheet is
// produced and the batch is created without a PDF artifact. The built-in
// SheetRenderer emits a small single-font PDF with no external dependencies,
// which keeps the binary free of font toolchains while producing a document
// any viewer can open.
package pdf

import (
	"context"
	"io"

	"github.com/radius-gateway/radius-gateway/internal/db/models"
)

// Renderer produces a credential sheet for a batch
type Renderer interface {
	// Render returns the PDF bytes for the batch's credentials
	Render(ctx context.Context, batch *models.RadiusBatch, credentials []models.BatchCredential) (io.Reader, error)
}
