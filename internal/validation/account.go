// account.go validates account identifiers: usernames, organization slugs, and passwords.
// Request shape (required fields, email format) is enforced by gin binding tags; these
// validators carry the domain rules binding tags cannot express.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxUsernameLength matches the users.username column width.
	MaxUsernameLength = 150

	// MinPasswordLength is the floor for user-chosen passwords. Generated
	// batch passwords are longer and random, so only this path checks it.
	MinPasswordLength = 8
)

// usernameRegex permits letters, digits and @ . + - _ so email addresses
// remain usable as usernames.
var usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

// slugRegex permits lowercase letters, digits and hyphens, starting and
// ending alphanumeric.
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// ValidateUsername validates a login name
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) > MaxUsernameLength {
		return fmt.Errorf("username exceeds %d characters", MaxUsernameLength)
	}

	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may only contain letters, digits, and @/./+/-/_ characters")
	}

	return nil
}

// ValidateSlug validates an organization slug as used in URL paths
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug cannot be empty")
	}

	if len(slug) > 150 {
		return fmt.Errorf("slug exceeds 150 characters")
	}

	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("slug may only contain lowercase letters, digits, and hyphens")
	}

	return nil
}

// ValidatePassword applies the password policy for user-chosen passwords
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	if strings.Count(password, string(password[0])) == len(password) {
		return fmt.Errorf("password cannot be a single repeated character")
	}

	return nil
}

// Slugify derives a URL slug from a display name. Provisioning uses it when
// the caller omits an explicit slug.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
