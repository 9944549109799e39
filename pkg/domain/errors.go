package domain

import "errors"

// Credential and account errors
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotActive   = errors.New("account is not active")
	ErrPrincipalNotFound  = errors.New("principal not found")
	ErrEmailTaken         = errors.New("email already in use")
	ErrUsernameTaken      = errors.New("username already in use")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
)

// Token errors
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrForbidden    = errors.New("forbidden")
)

// OTP lifecycle errors, shared by the 2FA and password-reset flows
var (
	ErrTwoFactorNotEnabled = errors.New("2FA is not enabled for this account")
	ErrCodeNotRequested    = errors.New("code not requested")
	ErrCodeExpired         = errors.New("code expired")
	ErrCodeUsed            = errors.New("code already used")
	ErrCodeInvalid         = errors.New("invalid code")
	ErrInvalidResetRequest = errors.New("invalid reset request")
)

// Validation errors
var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidUsername = errors.New("invalid username format")
	ErrWeakPassword    = errors.New("password does not meet requirements")
)

// ErrNotificationFailed surfaces outbound email delivery failure instead of
// letting a login or reset flow silently succeed without the code arriving.
var ErrNotificationFailed = errors.New("failed to send notification")
