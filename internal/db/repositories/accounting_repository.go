// accounting_repository.go implements AccountingRepository, providing database queries
// for RADIUS session records keyed by Acct-Unique-Session-Id.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radius-gateway/radius-gateway/internal/db/models"
)

// AccountingRepository handles radius accounting database operations
type AccountingRepository struct {
	db *sql.DB
}

// NewAccountingRepository creates a new AccountingRepository
func NewAccountingRepository(db *sql.DB) *AccountingRepository {
	return &AccountingRepository{db: db}
}

// GetByUniqueID retrieves a session by its Acct-Unique-Session-Id. This is
// the idempotency lookup: Start for a known unique_id is treated as a replay.
func (r *AccountingRepository) GetByUniqueID(ctx context.Context, uniqueID string) (*models.RadiusAccounting, error) {
	query := `
		SELECT id, organization_id, session_id, unique_id, username, nas_ip_address, framed_ip_address,
		       calling_station_id, called_station_id, start_time, update_time, stop_time,
		       session_time, input_octets, output_octets, terminate_cause
		FROM radius_accounting
		WHERE unique_id = $1
	`

	acct := &models.RadiusAccounting{}
	err := r.db.QueryRowContext(ctx, query, uniqueID).Scan(
		&acct.ID,
		&acct.OrganizationID,
		&acct.SessionID,
		&acct.UniqueID,
		&acct.Username,
		&acct.NASIPAddress,
		&acct.FramedIPAddress,
		&acct.CallingStationID,
		&acct.CalledStationID,
		&acct.StartTime,
		&acct.UpdateTime,
		&acct.StopTime,
		&acct.SessionTime,
		&acct.InputOctets,
		&acct.OutputOctets,
		&acct.TerminateCause,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get accounting record: %w", err)
	}

	return acct, nil
}

// Create inserts a new session record from a Start packet
func (r *AccountingRepository) Create(ctx context.Context, acct *models.RadiusAccounting) error {
	query := `
		INSERT INTO radius_accounting (organization_id, session_id, unique_id, username,
		                               nas_ip_address, framed_ip_address, calling_station_id, called_station_id,
		                               start_time, session_time, input_octets, output_octets)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		acct.OrganizationID,
		acct.SessionID,
		acct.UniqueID,
		acct.Username,
		acct.NASIPAddress,
		acct.FramedIPAddress,
		acct.CallingStationID,
		acct.CalledStationID,
		acct.StartTime,
		acct.SessionTime,
		acct.InputOctets,
		acct.OutputOctets,
	).Scan(&acct.ID)
	if err != nil {
		return fmt.Errorf("failed to create accounting record: %w", err)
	}

	return nil
}

// UpdateInterim refreshes the running counters from an Interim-Update packet
func (r *AccountingRepository) UpdateInterim(ctx context.Context, acct *models.RadiusAccounting) error {
	query := `
		UPDATE radius_accounting
		SET framed_ip_address = $2, update_time = NOW(),
		    session_time = $3, input_octets = $4, output_octets = $5
		WHERE unique_id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		acct.UniqueID,
		acct.FramedIPAddress,
		acct.SessionTime,
		acct.InputOctets,
		acct.OutputOctets,
	)
	if err != nil {
		return fmt.Errorf("failed to update accounting record: %w", err)
	}

	return nil
}

// CloseSession finalizes the record from a Stop packet. stop_time turning
// non-NULL is what marks the session closed.
func (r *AccountingRepository) CloseSession(ctx context.Context, acct *models.RadiusAccounting) error {
	query := `
		UPDATE radius_accounting
		SET stop_time = NOW(), update_time = NOW(),
		    session_time = $2, input_octets = $3, output_octets = $4, terminate_cause = $5
		WHERE unique_id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		acct.UniqueID,
		acct.SessionTime,
		acct.InputOctets,
		acct.OutputOctets,
		acct.TerminateCause,
	)
	if err != nil {
		return fmt.Errorf("failed to close accounting record: %w", err)
	}

	return nil
}

// List retrieves an organization's sessions, newest first, optionally
// filtered by username. Records from other organizations are never visible.
func (r *AccountingRepository) List(ctx context.Context, orgID, username string, limit, offset int) ([]*models.RadiusAccounting, error) {
	query := `
		SELECT id, organization_id, session_id, unique_id, username, nas_ip_address, framed_ip_address,
		       calling_station_id, called_station_id, start_time, update_time, stop_time,
		       session_time, input_octets, output_octets, terminate_cause
		FROM radius_accounting
		WHERE organization_id = $1
	`

	args := []interface{}{orgID}
	if username != "" {
		query += ` AND username = $2 ORDER BY start_time DESC LIMIT $3 OFFSET $4`
		args = append(args, username, limit, offset)
	} else {
		query += ` ORDER BY start_time DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounting records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.RadiusAccounting, 0)
	for rows.Next() {
		acct := &models.RadiusAccounting{}
		err := rows.Scan(
			&acct.ID,
			&acct.OrganizationID,
			&acct.SessionID,
			&acct.UniqueID,
			&acct.Username,
			&acct.NASIPAddress,
			&acct.FramedIPAddress,
			&acct.CallingStationID,
			&acct.CalledStationID,
			&acct.StartTime,
			&acct.UpdateTime,
			&acct.StopTime,
			&acct.SessionTime,
			&acct.InputOctets,
			&acct.OutputOctets,
			&acct.TerminateCause,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan accounting record: %w", err)
		}
		records = append(records, acct)
	}

	return records, rows.Err()
}

// Count returns the number of sessions for an organization, optionally
// filtered by username
func (r *AccountingRepository) Count(ctx context.Context, orgID, username string) (int, error) {
	query := `SELECT COUNT(*) FROM radius_accounting WHERE organization_id = $1`
	args := []interface{}{orgID}
	if username != "" {
		query += ` AND username = $2`
		args = append(args, username)
	}

	var count int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounting records: %w", err)
	}

	return count, nil
}
