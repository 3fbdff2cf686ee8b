// Package models - postauth.go defines the post-authentication log row written after
// every FreeRADIUS authentication decision.
package models

import "time"

// RadiusPostAuth records the outcome FreeRADIUS reports after an
// authentication attempt (Access-Accept / Access-Reject). Passwords are
// never stored here.
type RadiusPostAuth struct {
	ID               int64
	OrganizationID   string
	Username         string
	Reply            string // "Access-Accept" or "Access-Reject"
	CallingStationID string
	CalledStationID  string
	CreatedAt        time.Time
}
