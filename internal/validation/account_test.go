package validation

import (
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		// Valid names
		{"plain", "alice", false},
		{"with digits", "alice42", false},
		{"with dot", "alice.smith", false},
		{"with underscore", "alice_smith", false},
		{"with hyphen", "alice-smith", false},
		{"with plus", "alice+guest", false},
		{"email style", "alice@example.com", false},
		{"max length", strings.Repeat("a", MaxUsernameLength), false},
		// Invalid names
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxUsernameLength+1), true},
		{"with space", "alice smith", true},
		{"with slash", "alice/smith", true},
		{"with hash", "alice#1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.username, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		name    string
		slug    string
		wantErr bool
	}{
		// Valid slugs
		{"single word", "acme", false},
		{"hyphenated", "acme-corp", false},
		{"with digits", "acme2", false},
		{"digits only", "42", false},
		{"multiple hyphens", "a-b-c", false},
		// Invalid slugs
		{"empty", "", true},
		{"uppercase", "Acme", true},
		{"leading hyphen", "-acme", true},
		{"trailing hyphen", "acme-", true},
		{"double hyphen", "acme--corp", true},
		{"with space", "acme corp", true},
		{"with underscore", "acme_corp", true},
		{"too long", strings.Repeat("a", 151), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlug(tt.slug)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSlug(%q) error = %v, wantErr %v", tt.slug, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"long mixed", "correct-horse-battery", false},
		{"exactly min", "a1b2c3d4", false},
		{"empty", "", true},
		{"too short", "short", true},
		{"repeated character", "aaaaaaaaaa", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Corp", "acme-corp"},
		{"acme", "acme"},
		{"  Padded  ", "padded"},
		{"Wi-Fi @ Lobby", "wi-fi-lobby"},
		{"UPPER", "upper"},
		{"a  b", "a-b"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Slugify(tt.in)
			if got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
