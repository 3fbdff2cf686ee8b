// Package batch implements batch user provisioning. A single organization-token
// authenticated request creates a whole cohort of accounts, either generated
// under a username prefix or read from a posted CSV sheet. The batch row, every
// user, and every membership row commit in one transaction; generated
// credentials exist only in the creation response and the rendered PDF sheet,
// which is stored through the artifact storage backend and served to staff
// users via the slug-scoped download endpoint.
package batch

import (
	"database/sql"

	"github.com/radius-gateway/radius-gateway/internal/config"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
	"github.com/radius-gateway/radius-gateway/internal/pdf"
	"github.com/radius-gateway/radius-gateway/internal/storage"
)

// Handlers bundles the dependencies the batch endpoints share. store and
// renderer may be nil; creation then skips the artifact uploads and the
// download endpoint answers 404.
type Handlers struct {
	cfg *config.Config
	db  *sql.DB

	userRepo  *repositories.UserRepository
	orgRepo   *repositories.OrganizationRepository
	batchRepo *repositories.BatchRepository

	store    storage.Storage
	renderer pdf.Renderer
}

// NewHandlers creates the batch handler set.
func NewHandlers(cfg *config.Config, db *sql.DB, store storage.Storage, renderer pdf.Renderer) *Handlers {
	return &Handlers{
		cfg:       cfg,
		db:        db,
		userRepo:  repositories.NewUserRepository(db),
		orgRepo:   repositories.NewOrganizationRepository(db),
		batchRepo: repositories.NewBatchRepository(db),
		store:     store,
		renderer:  renderer,
	}
}
