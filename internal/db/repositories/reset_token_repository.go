// reset_token_repository.go implements ResetTokenRepository, providing database queries
// for single-use password reset tokens stored as SHA-256 hashes.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
)

// ResetTokenRepository handles password reset token database operations
type ResetTokenRepository struct {
	db *sql.DB
}

// NewResetTokenRepository creates a new ResetTokenRepository
func NewResetTokenRepository(db *sql.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Create inserts a new reset token record
func (r *ResetTokenRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO password_reset_tokens (id, user_id, organization_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.OrganizationID,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	return nil
}

// GetByHash retrieves a reset token by the SHA-256 hex of the mailed token
func (r *ResetTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, organization_id, token_hash, expires_at, used_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1
	`

	token := &models.PasswordResetToken{}
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.OrganizationID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return token, nil
}

// MarkUsed stamps used_at, making the token dead for any further confirm call
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, tokenID string) error {
	query := `UPDATE password_reset_tokens SET used_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, tokenID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}

	return nil
}

// DeleteExpired removes reset tokens past their expiry (for the cleanup job)
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM password_reset_tokens WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}

	return result.RowsAffected()
}
