package validation

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	// MaxBatchNameLength matches the radius_batches.name column width.
	MaxBatchNameLength = 150

	// MaxPrefixLength matches the radius_batches.prefix column width.
	MaxPrefixLength = 64
)

// ValidateBatchName validates a batch name
func ValidateBatchName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("batch name cannot be empty")
	}

	if len(name) > MaxBatchNameLength {
		return fmt.Errorf("batch name exceeds %d characters", MaxBatchNameLength)
	}

	return nil
}

// ValidatePrefix validates the username prefix for prefix-strategy batches.
// Generated usernames are the prefix plus a random suffix, so the prefix has
// to satisfy the username rules on its own.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("prefix cannot be empty")
	}

	if len(prefix) > MaxPrefixLength {
		return fmt.Errorf("prefix exceeds %d characters", MaxPrefixLength)
	}

	if !usernameRegex.MatchString(prefix) {
		return fmt.Errorf("prefix may only contain letters, digits, and @/./+/-/_ characters")
	}

	return nil
}

// ValidateCSVRow validates one username,password,email row of a csv-strategy
// batch. Password and email may be empty: a missing password is generated
// server-side, a missing email leaves the account without one.
func ValidateCSVRow(username, password, email string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}

	if password != "" {
		if err := ValidatePassword(password); err != nil {
			return err
		}
	}

	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("invalid email address %q", email)
		}
	}

	return nil
}
