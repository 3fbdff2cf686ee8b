// postauth_repository.go implements PostAuthRepository, providing database queries for
// the post-authentication log FreeRADIUS writes after every decision.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radius-gateway/radius-gateway/internal/db/models"
)

// PostAuthRepository handles radius post-auth database operations
type PostAuthRepository struct {
	db *sql.DB
}

// NewPostAuthRepository creates a new PostAuthRepository
func NewPostAuthRepository(db *sql.DB) *PostAuthRepository {
	return &PostAuthRepository{db: db}
}

// Create inserts a post-auth record
func (r *PostAuthRepository) Create(ctx context.Context, pa *models.RadiusPostAuth) error {
	query := `
		INSERT INTO radius_postauth (organization_id, username, reply, calling_station_id, called_station_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		pa.OrganizationID,
		pa.Username,
		pa.Reply,
		pa.CallingStationID,
		pa.CalledStationID,
	).Scan(&pa.ID, &pa.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create postauth record: %w", err)
	}

	return nil
}

// List retrieves an organization's post-auth records, newest first,
// optionally filtered by username
func (r *PostAuthRepository) List(ctx context.Context, orgID, username string, limit, offset int) ([]*models.RadiusPostAuth, error) {
	query := `
		SELECT id, organization_id, username, reply, calling_station_id, called_station_id, created_at
		FROM radius_postauth
		WHERE organization_id = $1
	`

	args := []interface{}{orgID}
	if username != "" {
		query += ` AND username = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, username, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list postauth records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.RadiusPostAuth, 0)
	for rows.Next() {
		pa := &models.RadiusPostAuth{}
		err := rows.Scan(
			&pa.ID,
			&pa.OrganizationID,
			&pa.Username,
			&pa.Reply,
			&pa.CallingStationID,
			&pa.CalledStationID,
			&pa.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan postauth record: %w", err)
		}
		records = append(records, pa)
	}

	return records, rows.Err()
}

// Count returns the number of post-auth records for an organization,
// optionally filtered by username
func (r *PostAuthRepository) Count(ctx context.Context, orgID, username string) (int, error) {
	query := `SELECT COUNT(*) FROM radius_postauth WHERE organization_id = $1`
	args := []interface{}{orgID}
	if username != "" {
		query += ` AND username = $2`
		args = append(args, username)
	}

	var count int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count postauth records: %w", err)
	}

	return count, nil
}
