// batch_repository.go implements BatchRepository, providing database queries for batch
// user creation runs and their generated-user join rows.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radius-gateway/radius-gateway/internal/db/models"
)

// BatchRepository handles radius batch database operations
type BatchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new BatchRepository
func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts a new batch run
func (r *BatchRepository) Create(ctx context.Context, batch *models.RadiusBatch) error {
	query := `
		INSERT INTO radius_batches (organization_id, name, strategy, prefix, csv_path, expiration_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		batch.OrganizationID,
		batch.Name,
		batch.Strategy,
		batch.Prefix,
		batch.CSVPath,
		batch.ExpirationDate,
	).Scan(&batch.ID, &batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

// CreateTx inserts a new batch run inside an existing transaction. Batch
// creation writes the batch row, every user, and every join row atomically.
func (r *BatchRepository) CreateTx(ctx context.Context, tx *sql.Tx, batch *models.RadiusBatch) error {
	query := `
		INSERT INTO radius_batches (organization_id, name, strategy, prefix, csv_path, expiration_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRowContext(ctx, query,
		batch.OrganizationID,
		batch.Name,
		batch.Strategy,
		batch.Prefix,
		batch.CSVPath,
		batch.ExpirationDate,
	).Scan(&batch.ID, &batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

// GetByID retrieves a batch scoped to an organization. The scope is part of
// the query so one tenant can never address another tenant's batch by ID.
func (r *BatchRepository) GetByID(ctx context.Context, orgID, batchID string) (*models.RadiusBatch, error) {
	query := `
		SELECT id, organization_id, name, strategy, prefix, csv_path, pdf_path, expiration_date, created_at, updated_at
		FROM radius_batches
		WHERE id = $1 AND organization_id = $2
	`

	batch := &models.RadiusBatch{}
	err := r.db.QueryRowContext(ctx, query, batchID, orgID).Scan(
		&batch.ID,
		&batch.OrganizationID,
		&batch.Name,
		&batch.Strategy,
		&batch.Prefix,
		&batch.CSVPath,
		&batch.PDFPath,
		&batch.ExpirationDate,
		&batch.CreatedAt,
		&batch.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return batch, nil
}

// GetByName retrieves a batch by its per-organization unique name
func (r *BatchRepository) GetByName(ctx context.Context, orgID, name string) (*models.RadiusBatch, error) {
	query := `
		SELECT id, organization_id, name, strategy, prefix, csv_path, pdf_path, expiration_date, created_at, updated_at
		FROM radius_batches
		WHERE organization_id = $1 AND name = $2
	`

	batch := &models.RadiusBatch{}
	err := r.db.QueryRowContext(ctx, query, orgID, name).Scan(
		&batch.ID,
		&batch.OrganizationID,
		&batch.Name,
		&batch.Strategy,
		&batch.Prefix,
		&batch.CSVPath,
		&batch.PDFPath,
		&batch.ExpirationDate,
		&batch.CreatedAt,
		&batch.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return batch, nil
}

// List retrieves an organization's batches, newest first
func (r *BatchRepository) List(ctx context.Context, orgID string, limit, offset int) ([]*models.RadiusBatch, error) {
	query := `
		SELECT id, organization_id, name, strategy, prefix, csv_path, pdf_path, expiration_date, created_at, updated_at
		FROM radius_batches
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	batches := make([]*models.RadiusBatch, 0)
	for rows.Next() {
		batch := &models.RadiusBatch{}
		err := rows.Scan(
			&batch.ID,
			&batch.OrganizationID,
			&batch.Name,
			&batch.Strategy,
			&batch.Prefix,
			&batch.CSVPath,
			&batch.PDFPath,
			&batch.ExpirationDate,
			&batch.CreatedAt,
			&batch.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}

	return batches, rows.Err()
}

// Count returns the number of batches for an organization
func (r *BatchRepository) Count(ctx context.Context, orgID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM radius_batches WHERE organization_id = $1`
	err := r.db.QueryRowContext(ctx, query, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}

	return count, nil
}

// AddUser links a generated user to the batch
func (r *BatchRepository) AddUser(ctx context.Context, batchID, userID string) error {
	query := `
		INSERT INTO radius_batch_users (batch_id, user_id, created_at)
		VALUES ($1, $2, NOW())
	`

	_, err := r.db.ExecContext(ctx, query, batchID, userID)
	if err != nil {
		return fmt.Errorf("failed to add batch user: %w", err)
	}

	return nil
}

// AddUserTx links a generated user to the batch inside an existing transaction
func (r *BatchRepository) AddUserTx(ctx context.Context, tx *sql.Tx, batchID, userID string) error {
	query := `
		INSERT INTO radius_batch_users (batch_id, user_id, created_at)
		VALUES ($1, $2, NOW())
	`

	_, err := tx.ExecContext(ctx, query, batchID, userID)
	if err != nil {
		return fmt.Errorf("failed to add batch user: %w", err)
	}

	return nil
}

// ListUsers retrieves the IDs of users a batch created
func (r *BatchRepository) ListUsers(ctx context.Context, batchID string) ([]string, error) {
	query := `
		SELECT user_id
		FROM radius_batch_users
		WHERE batch_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch users: %w", err)
	}
	defer rows.Close()

	userIDs := make([]string, 0)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan batch user: %w", err)
		}
		userIDs = append(userIDs, userID)
	}

	return userIDs, rows.Err()
}

// SetCSVPath records where the uploaded sheet was stored
func (r *BatchRepository) SetCSVPath(ctx context.Context, batchID, path string) error {
	query := `UPDATE radius_batches SET csv_path = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, batchID, path)
	if err != nil {
		return fmt.Errorf("failed to set batch csv path: %w", err)
	}

	return nil
}

// SetPDFPath records where the rendered credential sheet was stored
func (r *BatchRepository) SetPDFPath(ctx context.Context, batchID, path string) error {
	query := `UPDATE radius_batches SET pdf_path = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, batchID, path)
	if err != nil {
		return fmt.Errorf("failed to set batch pdf path: %w", err)
	}

	return nil
}
