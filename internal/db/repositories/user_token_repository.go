// user_token_repository.go implements UserTokenRepository, providing database queries for
// the per-(user, organization) opaque credentials: prefix lookup, get-or-create support,
// and last-used timestamp updates.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/radius-gateway/radius-gateway/internal/db/models"
)

// UserTokenRepository handles user auth token database operations
type UserTokenRepository struct {
	db *sql.DB
}

// NewUserTokenRepository creates a new UserTokenRepository
func NewUserTokenRepository(db *sql.DB) *UserTokenRepository {
	return &UserTokenRepository{db: db}
}

// Create inserts a new token
func (r *UserTokenRepository) Create(ctx context.Context, token *models.UserAuthToken) error {
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO user_auth_tokens (id, user_id, organization_id, key_prefix, key_cipher, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.OrganizationID,
		token.KeyPrefix,
		token.KeyCipher,
		token.CreatedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user token: %w", err)
	}

	return nil
}

// GetByPrefix retrieves tokens whose key_prefix matches. The prefix is ten
// random characters so more than one row is effectively impossible, but the
// authenticator still verifies the full key against each candidate.
func (r *UserTokenRepository) GetByPrefix(ctx context.Context, keyPrefix string) ([]*models.UserAuthToken, error) {
	query := `
		SELECT id, user_id, organization_id, key_prefix, key_cipher, created_at, last_used_at, expires_at
		FROM user_auth_tokens
		WHERE key_prefix = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens by prefix: %w", err)
	}
	defer rows.Close()

	tokens := make([]*models.UserAuthToken, 0)
	for rows.Next() {
		token := &models.UserAuthToken{}
		err := rows.Scan(
			&token.ID,
			&token.UserID,
			&token.OrganizationID,
			&token.KeyPrefix,
			&token.KeyCipher,
			&token.CreatedAt,
			&token.LastUsedAt,
			&token.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

// GetByUserAndOrg retrieves the token for a (user, organization) pair.
// Login issuance uses this for its get-or-create semantics.
func (r *UserTokenRepository) GetByUserAndOrg(ctx context.Context, userID, orgID string) (*models.UserAuthToken, error) {
	query := `
		SELECT id, user_id, organization_id, key_prefix, key_cipher, created_at, last_used_at, expires_at
		FROM user_auth_tokens
		WHERE user_id = $1 AND organization_id = $2
	`

	token := &models.UserAuthToken{}
	err := r.db.QueryRowContext(ctx, query, userID, orgID).Scan(
		&token.ID,
		&token.UserID,
		&token.OrganizationID,
		&token.KeyPrefix,
		&token.KeyCipher,
		&token.CreatedAt,
		&token.LastUsedAt,
		&token.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user token: %w", err)
	}

	return token, nil
}

// UpdateLastUsed stamps last_used_at for a token
func (r *UserTokenRepository) UpdateLastUsed(ctx context.Context, tokenID string) error {
	query := `UPDATE user_auth_tokens SET last_used_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, tokenID, time.Now())
	return err
}

// Delete removes a token by ID
func (r *UserTokenRepository) Delete(ctx context.Context, tokenID string) error {
	query := `DELETE FROM user_auth_tokens WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, tokenID)
	if err != nil {
		return fmt.Errorf("failed to delete user token: %w", err)
	}

	return nil
}

// DeleteByUserAndOrg removes the token for a (user, organization) pair.
// Password changes revoke the credential so the next login reissues it.
func (r *UserTokenRepository) DeleteByUserAndOrg(ctx context.Context, userID, orgID string) error {
	query := `DELETE FROM user_auth_tokens WHERE user_id = $1 AND organization_id = $2`
	_, err := r.db.ExecContext(ctx, query, userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete user token: %w", err)
	}

	return nil
}

// DeleteExpired removes all tokens past their expiry (for the cleanup job)
func (r *UserTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM user_auth_tokens
		WHERE expires_at IS NOT NULL AND expires_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	return result.RowsAffected()
}
