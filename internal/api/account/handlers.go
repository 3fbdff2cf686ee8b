// Package account implements the slug-dispatched self-service endpoints under
// /api/v1/radius/organization/{slug}/account/. The slug middleware resolves the
// organization before any handler runs, so every operation here is tenant-scoped:
// registration joins the user to the slug's organization, login only succeeds for
// members, and sessions, password flows, and phone verification never see another
// tenant's rows.
package account

import (
	"database/sql"

	"github.com/radius-gateway/radius-gateway/internal/config"
	"github.com/radius-gateway/radius-gateway/internal/crypto"
	"github.com/radius-gateway/radius-gateway/internal/db/repositories"
	"github.com/radius-gateway/radius-gateway/internal/mail"
	"github.com/radius-gateway/radius-gateway/internal/sms"
)

// Handlers bundles the dependencies the account endpoints share.
type Handlers struct {
	cfg *config.Config
	db  *sql.DB

	userRepo  *repositories.UserRepository
	orgRepo   *repositories.OrganizationRepository
	tokenRepo *repositories.UserTokenRepository
	acctRepo  *repositories.AccountingRepository
	phoneRepo *repositories.PhoneTokenRepository
	resetRepo *repositories.ResetTokenRepository

	cipher     *crypto.TokenCipher
	mailSender mail.Sender
	smsSender  sms.Sender
}

// NewHandlers creates the account handler set.
func NewHandlers(cfg *config.Config, db *sql.DB, cipher *crypto.TokenCipher, mailSender mail.Sender, smsSender sms.Sender) *Handlers {
	return &Handlers{
		cfg:        cfg,
		db:         db,
		userRepo:   repositories.NewUserRepository(db),
		orgRepo:    repositories.NewOrganizationRepository(db),
		tokenRepo:  repositories.NewUserTokenRepository(db),
		acctRepo:   repositories.NewAccountingRepository(db),
		phoneRepo:  repositories.NewPhoneTokenRepository(db),
		resetRepo:  repositories.NewResetTokenRepository(db),
		cipher:     cipher,
		mailSender: mailSender,
		smsSender:  smsSender,
	}
}
