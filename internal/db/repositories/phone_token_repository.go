// phone_token_repository.go implements PhoneTokenRepository, providing database queries
// for SMS verification codes and their attempt counters.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
)

// PhoneTokenRepository handles phone verification code database operations
type PhoneTokenRepository struct {
	db *sql.DB
}

// NewPhoneTokenRepository creates a new PhoneTokenRepository
func NewPhoneTokenRepository(db *sql.DB) *PhoneTokenRepository {
	return &PhoneTokenRepository{db: db}
}

// Create inserts a new verification code
func (r *PhoneTokenRepository) Create(ctx context.Context, token *models.PhoneToken) error {
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO phone_tokens (id, user_id, organization_id, code, attempts, max_attempts,
		                          valid_until, phone_number, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.OrganizationID,
		token.Code,
		token.Attempts,
		token.MaxAttempts,
		token.ValidUntil,
		token.PhoneNumber,
		token.Verified,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create phone token: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent unverified code for a (user, organization)
// pair. Verification always checks against the latest code; older ones are dead.
func (r *PhoneTokenRepository) GetLatest(ctx context.Context, userID, orgID string) (*models.PhoneToken, error) {
	query := `
		SELECT id, user_id, organization_id, code, attempts, max_attempts,
		       valid_until, phone_number, verified, created_at
		FROM phone_tokens
		WHERE user_id = $1 AND organization_id = $2 AND verified = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`

	token := &models.PhoneToken{}
	err := r.db.QueryRowContext(ctx, query, userID, orgID).Scan(
		&token.ID,
		&token.UserID,
		&token.OrganizationID,
		&token.Code,
		&token.Attempts,
		&token.MaxAttempts,
		&token.ValidUntil,
		&token.PhoneNumber,
		&token.Verified,
		&token.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get phone token: %w", err)
	}

	return token, nil
}

// IncrementAttempts bumps the attempt counter after a wrong code
func (r *PhoneTokenRepository) IncrementAttempts(ctx context.Context, tokenID string) error {
	query := `UPDATE phone_tokens SET attempts = attempts + 1 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, tokenID)
	if err != nil {
		return fmt.Errorf("failed to increment attempts: %w", err)
	}

	return nil
}

// MarkVerified marks the code as consumed
func (r *PhoneTokenRepository) MarkVerified(ctx context.Context, tokenID string) error {
	query := `UPDATE phone_tokens SET verified = TRUE WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, tokenID)
	if err != nil {
		return fmt.Errorf("failed to mark phone token verified: %w", err)
	}

	return nil
}

// DeleteExpired removes codes past their validity window (for the cleanup job)
func (r *PhoneTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM phone_tokens WHERE valid_until < $1`

	result, err := r.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired phone tokens: %w", err)
	}

	return result.RowsAffected()
}
