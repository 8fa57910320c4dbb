// Package token mints and verifies the JWTs used for sessions and team
// invitations.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config carries the signing secrets and lifetimes.
type Config struct {
	Secret        string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	InviteTTL     time.Duration
}

// Service issues HS256-signed tokens.
type Service struct {
	cfg Config
	now func() time.Time
}

func NewService(cfg Config) *Service {
	return &Service{cfg: cfg, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

type inviteClaims struct {
	jwt.RegisteredClaims
	Email  string `json:"email"`
	TeamID string `json:"team_id"`
	Role   string `json:"role"`
}

// Session holds a freshly minted token pair.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// Identity is the verified subject of a session token.
type Identity struct {
	UserID string
	Email  string
}

// Invite is the verified payload of an invite token.
type Invite struct {
	Email  string
	TeamID string
	Role   string
}

var ErrInvalidToken = errors.New("invalid token")

// GenerateSession mints an access/refresh pair for the user.
func (s *Service) GenerateSession(userID, email string) (Session, error) {
	now := s.now()
	access, err := s.sign(s.cfg.Secret, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
		Email: email,
	})
	if err != nil {
		return Session{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(s.cfg.RefreshSecret, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTTL)),
		},
		Email: email,
	})
	if err != nil {
		return Session{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return Session{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess checks an access token and returns its identity.
func (s *Service) VerifyAccess(raw string) (Identity, error) {
	return s.verifySession(raw, s.cfg.Secret)
}

// VerifyRefresh checks a refresh token and returns its identity.
func (s *Service) VerifyRefresh(raw string) (Identity, error) {
	return s.verifySession(raw, s.cfg.RefreshSecret)
}

func (s *Service) verifySession(raw, secret string) (Identity, error) {
	claims := &sessionClaims{}
	if err := s.parse(raw, secret, claims); err != nil {
		return Identity{}, err
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// GenerateInvite mints a short-lived token binding an email to a team role.
func (s *Service) GenerateInvite(email, teamID, role string) (string, error) {
	now := s.now()
	return s.sign(s.cfg.Secret, inviteClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.InviteTTL)),
		},
		Email:  email,
		TeamID: teamID,
		Role:   role,
	})
}

// VerifyInvite checks an invite token.
func (s *Service) VerifyInvite(raw string) (Invite, error) {
	claims := &inviteClaims{}
	if err := s.parse(raw, s.cfg.Secret, claims); err != nil {
		return Invite{}, err
	}
	if claims.Email == "" || claims.TeamID == "" {
		return Invite{}, ErrInvalidToken
	}
	return Invite{Email: claims.Email, TeamID: claims.TeamID, Role: claims.Role}, nil
}

func (s *Service) sign(secret string, claims jwt.Claims) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (s *Service) parse(raw, secret string, claims jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	parsed, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
