package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/outpost9/accountd/pkg/domain"
)

// PrincipalStore is the persistence surface the auth service needs. It is
// implemented by repository.PrincipalsRepository; tests provide in-memory
// fakes.
type PrincipalStore interface {
	Create(ctx context.Context, kind domain.Kind, p *domain.Principal) error
	GetByID(ctx context.Context, kind domain.Kind, id uuid.UUID) (*domain.Principal, error)
	GetByEmail(ctx context.Context, kind domain.Kind, email string) (*domain.Principal, error)
	GetByUsername(ctx context.Context, kind domain.Kind, username string) (*domain.Principal, error)
	Update(ctx context.Context, kind domain.Kind, id uuid.UUID, fields domain.UpdateFields) (*domain.Principal, error)
	UpdateStatus(ctx context.Context, kind domain.Kind, id uuid.UUID, status string) (*domain.Principal, error)
	UpdatePassword(ctx context.Context, kind domain.Kind, id uuid.UUID, passwordHash string) error
	RecordLogin(ctx context.Context, kind domain.Kind, id uuid.UUID, at time.Time, history []time.Time) error
	SetTwoFactorChallenge(ctx context.Context, kind domain.Kind, id uuid.UUID, fingerprint string, expiresAt time.Time) error
	MarkTwoFactorUsed(ctx context.Context, kind domain.Kind, id uuid.UUID) error
	SetResetChallenge(ctx context.Context, kind domain.Kind, id uuid.UUID, fingerprint string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, kind domain.Kind, id uuid.UUID, passwordHash string) error
	List(ctx context.Context, kind domain.Kind, params domain.ListParams) ([]domain.Principal, int, error)
	Delete(ctx context.Context, kind domain.Kind, id uuid.UUID) error
}

// CodeSender delivers one-time codes over the outbound email channel.
type CodeSender interface {
	SendTwoFactorCode(to, code string) error
	SendPasswordResetCode(to, code string) error
}

// Service orchestrates login, 2FA challenge/verification, password reset and
// password change over the store, hasher, OTP codec and token issuer.
type Service struct {
	store  PrincipalStore
	sender CodeSender
	tokens *TokenService
}

// NewService creates the auth service.
func NewService(store PrincipalStore, sender CodeSender, tokens *TokenService) *Service {
	return &Service{store: store, sender: sender, tokens: tokens}
}

// LoginResult is the outcome of a successful credential check. When
// TwoFactorRequired is set, Token is a 2FA-pending token and Principal is
// nil: no session has been granted yet.
type LoginResult struct {
	TwoFactorRequired bool              `json:"two_factor_required"`
	Token             string            `json:"token"`
	Principal         *domain.Principal `json:"principal,omitempty"`
}

// Login verifies credentials for the given kind. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, kind domain.Kind, email, password string) (*LoginResult, error) {
	p, err := s.store.GetByEmail(ctx, kind, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, p.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	if !p.IsActive() {
		return nil, domain.ErrAccountNotActive
	}

	if p.TwoFactorEnabled {
		if err := s.issueTwoFactorChallenge(ctx, kind, p); err != nil {
			return nil, err
		}
		token, err := s.tokens.IssuePending(p.ID, kind)
		if err != nil {
			return nil, err
		}
		return &LoginResult{TwoFactorRequired: true, Token: token}, nil
	}

	token, err := s.tokens.IssueSession(p.ID, kind, p.Role)
	if err != nil {
		return nil, err
	}

	p.RecordLogin(time.Now())
	if err := s.store.RecordLogin(ctx, kind, p.ID, *p.LastLogin, p.LoginHistory); err != nil {
		return nil, err
	}

	p.StripSecrets()
	return &LoginResult{Token: token, Principal: p}, nil
}

func (s *Service) issueTwoFactorChallenge(ctx context.Context, kind domain.Kind, p *domain.Principal) error {
	code, err := GenerateOTP()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.tokens.PendingTTL())
	if err := s.store.SetTwoFactorChallenge(ctx, kind, p.ID, FingerprintOTP(code), expiresAt); err != nil {
		return err
	}

	if err := s.sender.SendTwoFactorCode(p.Email, code); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err)
	}
	return nil
}

// VerifyTwoFactor checks a submitted OTP against the stored fingerprint and
// marks it used on success. Issuing the follow-up session token is the
// caller's job via the token service.
func (s *Service) VerifyTwoFactor(ctx context.Context, kind domain.Kind, principalID uuid.UUID, code string) error {
	p, err := s.store.GetByID(ctx, kind, principalID)
	if err != nil {
		return err
	}

	if !p.TwoFactorEnabled {
		return domain.ErrTwoFactorNotEnabled
	}
	if p.TwoFactorCodeUsed {
		return domain.ErrCodeUsed
	}
	if p.TwoFactorCodeHash == "" || p.TwoFactorCodeExpiresAt == nil {
		return domain.ErrCodeNotRequested
	}
	if time.Now().After(*p.TwoFactorCodeExpiresAt) {
		return domain.ErrCodeExpired
	}
	if !OTPEqual(p.TwoFactorCodeHash, FingerprintOTP(code)) {
		return domain.ErrCodeInvalid
	}

	return s.store.MarkTwoFactorUsed(ctx, kind, principalID)
}

// CreateParams carries principal creation input.
type CreateParams struct {
	Username         string
	Email            string
	Password         string
	Role             string
	Status           string
	TwoFactorEnabled bool
	Meta             json.RawMessage
}

// CreatePrincipal provisions a new principal after uniqueness checks.
func (s *Service) CreatePrincipal(ctx context.Context, kind domain.Kind, params CreateParams) (*domain.Principal, error) {
	email := NormalizeEmail(params.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateUsername(params.Username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(params.Password); err != nil {
		return nil, err
	}

	role := params.Role
	if role == "" {
		role = domain.RoleUser
	}
	if kind == domain.KindUser && !domain.ValidUserRole(role) {
		return nil, domain.ErrInvalidInput
	}

	status := params.Status
	if status == "" {
		status = domain.StatusActive
	}
	if !domain.ValidStatus(status) {
		return nil, domain.ErrInvalidInput
	}

	if _, err := s.store.GetByEmail(ctx, kind, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrPrincipalNotFound) {
		return nil, err
	}
	if _, err := s.store.GetByUsername(ctx, kind, params.Username); err == nil {
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrPrincipalNotFound) {
		return nil, err
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &domain.Principal{
		ID:               uuid.New(),
		Username:         params.Username,
		Email:            email,
		PasswordHash:     hash,
		Role:             role,
		Status:           status,
		TwoFactorEnabled: params.TwoFactorEnabled,
		Meta:             params.Meta,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.Create(ctx, kind, p); err != nil {
		return nil, err
	}

	p.StripSecrets()
	return p, nil
}

// RequestPasswordReset issues a reset code to the given address. It succeeds
// whether or not the email matches a principal, so callers cannot enumerate
// accounts; a matching principal gets a fresh fingerprint, expiry and email.
func (s *Service) RequestPasswordReset(ctx context.Context, kind domain.Kind, email string) error {
	p, err := s.store.GetByEmail(ctx, kind, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return nil
		}
		return err
	}

	code, err := GenerateOTP()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.tokens.PendingTTL())
	if err := s.store.SetResetChallenge(ctx, kind, p.ID, FingerprintOTP(code), expiresAt); err != nil {
		return err
	}

	if err := s.sender.SendPasswordResetCode(p.Email, code); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err)
	}
	return nil
}

// ResetPassword verifies a reset code and stores a new password hash,
// clearing the reset state so the code is single use.
func (s *Service) ResetPassword(ctx context.Context, kind domain.Kind, email, code, newPassword string) error {
	p, err := s.store.GetByEmail(ctx, kind, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return domain.ErrInvalidResetRequest
		}
		return err
	}

	if p.ResetCodeHash == "" || p.ResetCodeExpiresAt == nil {
		return domain.ErrCodeNotRequested
	}
	if time.Now().After(*p.ResetCodeExpiresAt) {
		return domain.ErrCodeExpired
	}
	if !OTPEqual(p.ResetCodeHash, FingerprintOTP(code)) {
		return domain.ErrCodeInvalid
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.store.ResetPassword(ctx, kind, p.ID, hash)
}

// ChangePassword rehashes and stores a new password after checking the
// current one.
func (s *Service) ChangePassword(ctx context.Context, kind domain.Kind, principalID uuid.UUID, currentPassword, newPassword string) error {
	p, err := s.store.GetByID(ctx, kind, principalID)
	if err != nil {
		return err
	}

	if !VerifyPassword(currentPassword, p.PasswordHash) {
		return domain.ErrIncorrectPassword
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.store.UpdatePassword(ctx, kind, principalID, hash)
}
