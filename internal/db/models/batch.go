// Package models - batch.go defines batch user creation runs and their membership join rows.
package models

import "time"

// Batch creation strategies.
const (
	BatchStrategyPrefix = "prefix"
	BatchStrategyCSV    = "csv"
)

// RadiusBatch is one batch user creation run. With the prefix strategy the
// server generates N username/password pairs under Prefix; with the csv
// strategy the caller posts a username,password,email sheet. CSVPath and
// PDFPath are storage-backend paths for the uploaded sheet and the rendered
// credential PDF. Users created by a batch past ExpirationDate are
// deactivated by the background sweeper.
type RadiusBatch struct {
	ID             string
	OrganizationID string
	Name           string // Unique per organization
	Strategy       string
	Prefix         string
	CSVPath        *string
	PDFPath        *string
	ExpirationDate *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RadiusBatchUser links a batch to a user it created.
type RadiusBatchUser struct {
	BatchID   string
	UserID    string
	CreatedAt time.Time
}

// BatchCredential is one generated username/password pair. It exists only in
// the creation response and the rendered PDF; plaintext passwords are not
// persisted.
type BatchCredential struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}
