package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/outpost9/accountd/pkg/domain"
)

// Token purposes. A 2FA-pending token authorizes only OTP submission and is
// structurally rejected wherever a session token is required.
const (
	purposeSession = "session"
	purposePending = "2fa-pending"
)

// Default token lifetimes.
const (
	DefaultSessionTokenTTL = 24 * time.Hour
	DefaultPendingTokenTTL = 10 * time.Minute
)

// TokenConfig holds token issuance configuration.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	SessionTTL time.Duration
	PendingTTL time.Duration
}

// TokenService issues and verifies the two token kinds used by the backend:
// full session tokens and short-lived 2FA-pending tokens.
type TokenService struct {
	config TokenConfig
}

// NewTokenService creates a token service, applying default TTLs.
func NewTokenService(config TokenConfig) *TokenService {
	if config.SessionTTL == 0 {
		config.SessionTTL = DefaultSessionTokenTTL
	}
	if config.PendingTTL == 0 {
		config.PendingTTL = DefaultPendingTokenTTL
	}
	return &TokenService{config: config}
}

// SessionClaims are the claims carried by a full session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Kind    domain.Kind `json:"kind"`
	Role    string      `json:"role"`
	Purpose string      `json:"purpose"`
}

// PendingClaims are the claims carried by a 2FA-pending token. It carries no
// role: it grants nothing beyond the right to submit an OTP.
type PendingClaims struct {
	jwt.RegisteredClaims
	Kind    domain.Kind `json:"kind"`
	Purpose string      `json:"purpose"`
}

// PendingTTL returns the 2FA-pending token lifetime, which is also the OTP
// expiry window.
func (s *TokenService) PendingTTL() time.Duration {
	return s.config.PendingTTL
}

// IssueSession creates a signed session token for an authenticated principal.
func (s *TokenService) IssueSession(principalID uuid.UUID, kind domain.Kind, role string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID.String(),
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.SessionTTL)),
		},
		Kind:    kind,
		Role:    role,
		Purpose: purposeSession,
	}
	return s.sign(claims)
}

// IssuePending creates a short-lived token authorizing only OTP submission
// for the given principal.
func (s *TokenService) IssuePending(principalID uuid.UUID, kind domain.Kind) (string, error) {
	now := time.Now()
	claims := PendingClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID.String(),
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.PendingTTL)),
		},
		Kind:    kind,
		Purpose: purposePending,
	}
	return s.sign(claims)
}

func (s *TokenService) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifySession validates a session token and returns its claims. A
// 2FA-pending token fails here with ErrTokenInvalid regardless of signature
// validity.
func (s *TokenService) VerifySession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != purposeSession {
		return nil, domain.ErrTokenInvalid
	}
	if !claims.Kind.Valid() {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

// VerifyPending validates a 2FA-pending token and returns its claims. A
// session token is not accepted.
func (s *TokenService) VerifyPending(tokenString string) (*PendingClaims, error) {
	claims := &PendingClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != purposePending {
		return nil, domain.ErrTokenInvalid
	}
	if !claims.Kind.Valid() {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

func (s *TokenService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.ErrTokenExpired
		}
		return domain.ErrTokenInvalid
	}
	if !token.Valid {
		return domain.ErrTokenInvalid
	}
	return nil
}

// SubjectID parses the token subject as a principal id.
func SubjectID(claims jwt.Claims) (uuid.UUID, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, domain.ErrTokenInvalid
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, domain.ErrTokenInvalid
	}
	return id, nil
}
