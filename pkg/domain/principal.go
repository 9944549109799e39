package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind selects which principal population an operation acts on. Users and
// admins share one schema but live in separate tables and never share
// sessions.
type Kind string

const (
	KindUser  Kind = "user"
	KindAdmin Kind = "admin"
)

// Valid reports whether the kind is one of the known principal kinds.
func (k Kind) Valid() bool {
	return k == KindUser || k == KindAdmin
}

// Account status values.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// Roles assignable to user-kind principals. Admin-kind principals carry
// free-form roles such as "admin" and "superadmin".
const (
	RoleUser    = "user"
	RolePremium = "premium"
	RoleBanned  = "banned"
	RoleAdmin   = "admin"
)

// LoginHistoryCap bounds the number of retained login timestamps.
const LoginHistoryCap = 20

// Principal is an account of either kind. Credential and challenge fields
// never serialize to JSON.
type Principal struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`

	LastLogin    *time.Time  `json:"lastLogin,omitempty"`
	LoginHistory []time.Time `json:"loginHistory,omitempty"`

	TwoFactorEnabled       bool       `json:"twoFactorEnabled"`
	TwoFactorCodeHash      string     `json:"-"`
	TwoFactorCodeExpiresAt *time.Time `json:"-"`
	TwoFactorCodeUsed      bool       `json:"-"`

	ResetCodeHash      string     `json:"-"`
	ResetCodeExpiresAt *time.Time `json:"-"`

	Meta json.RawMessage `json:"meta,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsActive reports whether the account may authenticate.
func (p *Principal) IsActive() bool {
	return p.Status == StatusActive
}

// RecordLogin sets the last-login timestamp and appends it to the history,
// dropping the oldest entries beyond LoginHistoryCap.
func (p *Principal) RecordLogin(at time.Time) {
	p.LastLogin = &at
	p.LoginHistory = append(p.LoginHistory, at)
	if len(p.LoginHistory) > LoginHistoryCap {
		p.LoginHistory = p.LoginHistory[len(p.LoginHistory)-LoginHistoryCap:]
	}
}

// StripSecrets clears the credential and challenge fields so the principal
// can be handed outward. Returns the receiver for chaining.
func (p *Principal) StripSecrets() *Principal {
	p.PasswordHash = ""
	p.TwoFactorCodeHash = ""
	p.TwoFactorCodeExpiresAt = nil
	p.TwoFactorCodeUsed = false
	p.ResetCodeHash = ""
	p.ResetCodeExpiresAt = nil
	return p
}

// UpdateFields is the allow-list for principal updates. Nil members are
// left untouched; anything not represented here cannot be changed through
// the update path.
type UpdateFields struct {
	Username         *string
	Email            *string
	Status           *string
	Role             *string
	TwoFactorEnabled *bool
	Meta             json.RawMessage
}

// Empty reports whether no field is set.
func (f UpdateFields) Empty() bool {
	return f.Username == nil && f.Email == nil && f.Status == nil &&
		f.Role == nil && f.TwoFactorEnabled == nil && f.Meta == nil
}

// ValidStatus reports whether s is a known account status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// ValidUserRole reports whether r is assignable to a user-kind principal.
func ValidUserRole(r string) bool {
	switch r {
	case RoleUser, RolePremium, RoleBanned, RoleAdmin:
		return true
	}
	return false
}
