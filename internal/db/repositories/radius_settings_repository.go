// radius_settings_repository.go implements RadiusSettingsRepository, providing database
// queries for the per-organization encrypted token record and its rotation.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radius-gateway/radius-gateway/internal/db/models"
)

// RadiusSettingsRepository handles database operations for organization radius settings
type RadiusSettingsRepository struct {
	db *sql.DB
}

// NewRadiusSettingsRepository creates a new RadiusSettingsRepository
func NewRadiusSettingsRepository(db *sql.DB) *RadiusSettingsRepository {
	return &RadiusSettingsRepository{db: db}
}

// GetByOrganizationID retrieves the settings row for an organization.
// This is the authoritative token lookup the authenticator falls back to on
// a cache miss.
func (r *RadiusSettingsRepository) GetByOrganizationID(ctx context.Context, orgID string) (*models.OrganizationRadiusSettings, error) {
	query := `
		SELECT id, organization_id, token_cipher, token_rotated_at, created_at, updated_at
		FROM organization_radius_settings
		WHERE organization_id = $1
	`

	settings := &models.OrganizationRadiusSettings{}
	err := r.db.QueryRowContext(ctx, query, orgID).Scan(
		&settings.ID,
		&settings.OrganizationID,
		&settings.TokenCipher,
		&settings.TokenRotatedAt,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get radius settings: %w", err)
	}

	return settings, nil
}

// Create inserts the settings row for an organization
func (r *RadiusSettingsRepository) Create(ctx context.Context, settings *models.OrganizationRadiusSettings) error {
	query := `
		INSERT INTO organization_radius_settings (organization_id, token_cipher)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, settings.OrganizationID, settings.TokenCipher).Scan(
		&settings.ID,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create radius settings: %w", err)
	}

	return nil
}

// CreateTx inserts the settings row inside an existing transaction, used by
// organization provisioning.
func (r *RadiusSettingsRepository) CreateTx(ctx context.Context, tx *sql.Tx, settings *models.OrganizationRadiusSettings) error {
	query := `
		INSERT INTO organization_radius_settings (organization_id, token_cipher)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRowContext(ctx, query, settings.OrganizationID, settings.TokenCipher).Scan(
		&settings.ID,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create radius settings: %w", err)
	}

	return nil
}

// RotateToken replaces the stored ciphertext and stamps token_rotated_at.
// The caller must invalidate the organization's cache entry afterwards so
// the old token stops working immediately.
func (r *RadiusSettingsRepository) RotateToken(ctx context.Context, orgID, tokenCipher string) error {
	query := `
		UPDATE organization_radius_settings
		SET token_cipher = $2, token_rotated_at = NOW(), updated_at = NOW()
		WHERE organization_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, orgID, tokenCipher)
	if err != nil {
		return fmt.Errorf("failed to rotate token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to rotate token: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Delete removes the settings row for an organization
func (r *RadiusSettingsRepository) Delete(ctx context.Context, orgID string) error {
	query := `DELETE FROM organization_radius_settings WHERE organization_id = $1`
	_, err := r.db.ExecContext(ctx, query, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete radius settings: %w", err)
	}

	return nil
}
