package auth

import (
	"errors"
	"testing"

	"github.com/outpost9/accountd/pkg/domain"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Alice@Example.COM", "alice@example.com"},
		{"  bob@example.com  ", "bob@example.com"},
		{"plain@example.com", "plain@example.com"},
	}
	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("a@x.com"); err != nil {
		t.Errorf("valid email rejected: %v", err)
	}
	for _, bad := range []string{"", "not-an-email", "@x.com", "a@"} {
		if err := ValidateEmail(bad); !errors.Is(err, domain.ErrInvalidEmail) {
			t.Errorf("ValidateEmail(%q) = %v, want ErrInvalidEmail", bad, err)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid", "validuser", false},
		{"valid with numbers", "user123", false},
		{"valid with underscore", "user_name", false},
		{"valid with hyphen", "user-name", false},
		{"too short", "ab", true},
		{"starts with underscore", "_username", true},
		{"contains @", "user@name", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.username, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidUsername) {
				t.Errorf("expected ErrInvalidUsername, got %v", err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("secret1"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
	if err := ValidatePassword("short"); !errors.Is(err, domain.ErrWeakPassword) {
		t.Errorf("ValidatePassword(short) = %v, want ErrWeakPassword", err)
	}
}
