// Package admin implements the staff-facing administrative API: JWT login,
// organization provisioning with token issuance, token rotation, and
// dashboard statistics. Every route in this package sits behind the staff
// JWT middleware; mutations are recorded by the audit middleware.
package admin

import (
	"database/sql"

	"github.com/radius-gateway/radius-gateway/internal/config"
	"github.com/radius-gateway/radius-gateway/internal/crypto"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
	"github.com/radius-gateway/radius-gateway/internal/tokencache"
)

// Handlers bundles the dependencies shared by the admin endpoints.
type Handlers struct {
	cfg          *config.Config
	db           *sql.DB
	userRepo     *repositories.UserRepository
	orgRepo      *repositories.OrganizationRepository
	settingsRepo *repositories.RadiusSettingsRepository
	cipher       *crypto.TokenCipher
	cache        tokencache.Cache
}

// NewHandlers creates a new Handlers instance. cache may be nil when no
// token cache is configured; rotation then skips the invalidation step.
func NewHandlers(cfg *config.Config, db *sql.DB, cipher *crypto.TokenCipher, cache tokencache.Cache) *Handlers {
	return &Handlers{
		cfg:          cfg,
		db:           db,
		userRepo:     repositories.NewUserRepository(db),
		orgRepo:      repositories.NewOrganizationRepository(db),
		settingsRepo: repositories.NewRadiusSettingsRepository(db),
		cipher:       cipher,
		cache:        cache,
	}
}
