package auth

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/outpost9/accountd/pkg/domain"
)

// usernameRe: 3-50 chars, alphanumeric/underscore/hyphen, starts alphanumeric.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{2,49}$`)

const minPasswordLen = 6

// NormalizeEmail lowercases and trims an email address. All lookups and
// stored values go through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks basic address shape.
func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.ErrInvalidEmail
	}
	return nil
}

// ValidateUsername checks username format.
func ValidateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return domain.ErrInvalidUsername
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return domain.ErrWeakPassword
	}
	return nil
}
