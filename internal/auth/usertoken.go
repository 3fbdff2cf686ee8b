// Package auth provides authentication primitives for the gateway: per-user opaque key
// generation, organization token handling, bcrypt password hashing, and JWT creation/verification.
// See internal/middleware for the request-time authentication logic that uses these primitives.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// UserKeyLength is the length of the random part of a user auth key in bytes
	UserKeyLength = 32

	// KeyPrefixLength is the number of leading characters stored in the
	// indexed key_prefix column and shown in listings
	KeyPrefixLength = 10

	// BcryptCost is the cost factor for bcrypt password hashing
	BcryptCost = 12
)

// GenerateUserKey creates a new random user auth key.
// Returns: full key (returned to the caller and stored encrypted) and the
// lookup prefix (first KeyPrefixLength characters, stored indexed).
func GenerateUserKey() (key string, keyPrefix string, err error) {
	// Generate random bytes
	randomBytes := make([]byte, UserKeyLength)
	_, err = rand.Read(randomBytes)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	// Encode to base64 (URL-safe)
	randomPart := base64.RawURLEncoding.EncodeToString(randomBytes)

	// Construct full key: rad_randomPart
	fullKey := fmt.Sprintf("rad_%s", randomPart)

	return fullKey, fullKey[:KeyPrefixLength], nil
}

// SecureCompare reports whether two credential strings are equal without
// leaking the position of the first differing byte through timing.
func SecureCompare(presented, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashBytes), nil
}

// CheckPassword reports whether the plaintext matches the stored bcrypt hash.
func CheckPassword(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}

// ExtractBearerKey extracts the user key from an Authorization header.
// Expected format: "Bearer rad_abc123xyz..."
func ExtractBearerKey(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}

	// Check if it starts with "Bearer "
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("authorization header must start with 'Bearer '")
	}

	// Extract the key (remove "Bearer " prefix)
	key := strings.TrimPrefix(header, "Bearer ")
	key = strings.TrimSpace(key)

	if key == "" {
		return "", errors.New("key is empty after Bearer prefix")
	}

	return key, nil
}
