// Package auth - errors.go defines the sentinel errors of the authentication
// and scoping path. Handlers map them to HTTP statuses; nothing in this path
// retries automatically.
package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationFailed covers every credential failure: missing or
	// wrong identifier/token, store read errors (fail-closed), and requests
	// that try to set the organization explicitly. Deliberately generic so
	// the response never reveals which part was wrong.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrParse is returned for a structurally malformed Authorization header
	// (fewer than three space-separated parts). Distinct from a credential
	// failure: the request could not even be interpreted.
	ErrParse = errors.New("invalid authorization header")

	// ErrNotFound is returned when a slug or identifier resolves to no
	// organization, or when a resource belongs to another tenant.
	ErrNotFound = errors.New("not found")
)

// MembershipError reports that a user authenticated correctly but holds no
// membership in the requested organization. Unlike ErrAuthenticationFailed it
// names both parties: login knows the credentials were right, so hiding the
// membership gap would only send the user chasing a password problem that
// does not exist.
type MembershipError struct {
	Username     string
	Organization string
}

func (e *MembershipError) Error() string {
	return fmt.Sprintf("user %q is not a member of %q", e.Username, e.Organization)
}
