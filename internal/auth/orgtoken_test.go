package auth

import (
	"errors"
	"testing"
)

func TestGenerateOrgToken(t *testing.T) {
	t.Run("returns hex token of expected length", func(t *testing.T) {
		token, err := GenerateOrgToken()
		if err != nil {
			t.Fatalf("GenerateOrgToken() error: %v", err)
		}
		if len(token) != OrgTokenBytes*2 {
			t.Errorf("GenerateOrgToken() len = %d, want %d", len(token), OrgTokenBytes*2)
		}
	})

	t.Run("two calls produce different tokens", func(t *testing.T) {
		t1, _ := GenerateOrgToken()
		t2, _ := GenerateOrgToken()
		if t1 == t2 {
			t.Error("GenerateOrgToken() produced identical tokens on consecutive calls")
		}
	})
}

func TestParseOrgAuthorizationHeader(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantUUID  string
		wantToken string
		wantErr   error
	}{
		{
			name:      "three parts",
			header:    "Bearer 11111111-2222-3333-4444-555555555555 secrettoken",
			wantUUID:  "11111111-2222-3333-4444-555555555555",
			wantToken: "secrettoken",
		},
		{
			name:      "non-bearer scheme accepted",
			header:    "Token 11111111-2222-3333-4444-555555555555 secrettoken",
			wantUUID:  "11111111-2222-3333-4444-555555555555",
			wantToken: "secrettoken",
		},
		{
			name:      "extra whitespace between parts",
			header:    "Bearer   org-uuid   tok",
			wantUUID:  "org-uuid",
			wantToken: "tok",
		},
		{name: "two parts", header: "Bearer secrettoken", wantErr: ErrParse},
		{name: "one part", header: "Bearer", wantErr: ErrParse},
		{name: "empty", header: "", wantErr: ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uuid, token, err := ParseOrgAuthorizationHeader(tt.header)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseOrgAuthorizationHeader(%q) error = %v, want %v", tt.header, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOrgAuthorizationHeader(%q) unexpected error: %v", tt.header, err)
			}
			if uuid != tt.wantUUID {
				t.Errorf("uuid = %q, want %q", uuid, tt.wantUUID)
			}
			if token != tt.wantToken {
				t.Errorf("token = %q, want %q", token, tt.wantToken)
			}
		})
	}
}

func TestMembershipError(t *testing.T) {
	err := &MembershipError{Username: "jdoe", Organization: "acme"}
	want := `user "jdoe" is not a member of "acme"`
	if err.Error() != want {
		t.Errorf("MembershipError.Error() = %q, want %q", err.Error(), want)
	}
}
