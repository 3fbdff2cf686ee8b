// Package auth - orgtoken.go handles the organization credential format: token
// generation at provisioning/rotation time and Authorization header parsing.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// OrgTokenBytes is the entropy of a generated organization token; the hex
// form is twice this length.
const OrgTokenBytes = 32

// GenerateOrgToken creates a new random organization token (hex encoded).
// Generated on organization provisioning and on every rotation.
func GenerateOrgToken() (string, error) {
	b := make([]byte, OrgTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ParseOrgAuthorizationHeader splits "Authorization: <scheme> <uuid> <token>"
// into its identifier and token parts. The scheme is accepted as-is (the
// original clients send "Bearer"; FreeRADIUS configs have shipped others) —
// only the three-part structure is enforced. Fewer than three parts is a
// structural ErrParse, never a credential failure.
func ParseOrgAuthorizationHeader(header string) (orgUUID, token string, err error) {
	parts := strings.Fields(header)
	if len(parts) < 3 {
		return "", "", ErrParse
	}
	return parts[1], parts[2], nil
}
