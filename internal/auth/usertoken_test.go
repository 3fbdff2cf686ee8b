package auth

import (
	"strings"
	"testing"
)

func TestGenerateUserKey(t *testing.T) {
	t.Run("returns key and prefix", func(t *testing.T) {
		key, prefix, err := GenerateUserKey()
		if err != nil {
			t.Fatalf("GenerateUserKey() error: %v", err)
		}
		if key == "" {
			t.Error("GenerateUserKey() returned empty key")
		}
		if prefix == "" {
			t.Error("GenerateUserKey() returned empty prefix")
		}
	})

	t.Run("key starts with rad_", func(t *testing.T) {
		key, _, err := GenerateUserKey()
		if err != nil {
			t.Fatalf("GenerateUserKey() error: %v", err)
		}
		if !strings.HasPrefix(key, "rad_") {
			t.Errorf("GenerateUserKey() key = %q, want prefix %q", key, "rad_")
		}
	})

	t.Run("prefix matches key start", func(t *testing.T) {
		key, prefix, err := GenerateUserKey()
		if err != nil {
			t.Fatalf("GenerateUserKey() error: %v", err)
		}
		if !strings.HasPrefix(key, prefix) {
			t.Errorf("key %q does not start with prefix %q", key, prefix)
		}
	})

	t.Run("prefix length is KeyPrefixLength", func(t *testing.T) {
		_, prefix, err := GenerateUserKey()
		if err != nil {
			t.Fatalf("GenerateUserKey() error: %v", err)
		}
		if len(prefix) != KeyPrefixLength {
			t.Errorf("prefix len = %d, want %d", len(prefix), KeyPrefixLength)
		}
	})

	t.Run("two calls produce different keys", func(t *testing.T) {
		key1, _, _ := GenerateUserKey()
		key2, _, _ := GenerateUserKey()
		if key1 == key2 {
			t.Error("GenerateUserKey() produced identical keys on consecutive calls")
		}
	})
}

func TestSecureCompare(t *testing.T) {
	tests := []struct {
		name      string
		presented string
		expected  string
		want      bool
	}{
		{"equal strings", "rad_abc123", "rad_abc123", true},
		{"different strings", "rad_abc123", "rad_abc124", false},
		{"different lengths", "rad_abc", "rad_abc123", false},
		{"both empty", "", "", true},
		{"one empty", "rad_abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SecureCompare(tt.presented, tt.expected); got != tt.want {
				t.Errorf("SecureCompare(%q, %q) = %v, want %v", tt.presented, tt.expected, got, tt.want)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		hash, err := HashPassword("s3cret-password")
		if err != nil {
			t.Fatalf("HashPassword() error: %v", err)
		}
		if hash == "s3cret-password" {
			t.Error("HashPassword() returned the plaintext unchanged")
		}
		if !CheckPassword("s3cret-password", hash) {
			t.Error("CheckPassword() rejected the correct password")
		}
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		hash, err := HashPassword("correct-password")
		if err != nil {
			t.Fatalf("HashPassword() error: %v", err)
		}
		if CheckPassword("wrong-password", hash) {
			t.Error("CheckPassword() accepted a wrong password")
		}
	})

	t.Run("garbage hash rejected", func(t *testing.T) {
		if CheckPassword("anything", "not-a-bcrypt-hash") {
			t.Error("CheckPassword() accepted a non-bcrypt stored hash")
		}
	})
}

func TestExtractBearerKey(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer", "Bearer rad_abc123", "rad_abc123", false},
		{"empty header", "", "", true},
		{"missing Bearer prefix", "rad_abc123", "", true},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", true},
		{"empty key after Bearer", "Bearer ", "", true},
		{"whitespace key", "Bearer    ", "", true},
		{"key with surrounding spaces", "Bearer  rad_abc123 ", "rad_abc123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearerKey(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractBearerKey(%q) error = %v, wantErr %v", tt.header, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractBearerKey(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
