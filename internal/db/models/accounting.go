// Package models - accounting.go defines the RADIUS accounting session record populated
// from FreeRADIUS Start / Interim-Update / Stop packets.
package models

import "time"

// Accounting status types as sent by FreeRADIUS's rest module.
const (
	AcctStatusStart         = "Start"
	AcctStatusInterimUpdate = "Interim-Update"
	AcctStatusStop          = "Stop"
)

// RadiusAccounting is one NAS session. unique_id (Acct-Unique-Session-Id) is
// the idempotency key: Start creates the row, Interim-Update and Stop update
// it in place. stop_time IS NULL means the session is still open.
type RadiusAccounting struct {
	ID               int64
	OrganizationID   string
	SessionID        string // Acct-Session-Id
	UniqueID         string // Acct-Unique-Session-Id, unique
	Username         string
	NASIPAddress     string
	FramedIPAddress  string
	CallingStationID string
	CalledStationID  string
	StartTime        time.Time
	UpdateTime       *time.Time
	StopTime         *time.Time
	SessionTime      int64 // Seconds
	InputOctets      int64
	OutputOctets     int64
	TerminateCause   string
}

// IsOpen reports whether the session has not yet received a Stop.
func (a *RadiusAccounting) IsOpen() bool {
	return a.StopTime == nil
}
