package token

import (
	"errors"
	"testing"
	"time"
)

func testService() *Service {
	return NewService(Config{
		Secret:        "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		InviteTTL:     15 * time.Minute,
	})
}

func TestSessionRoundTrip(t *testing.T) {
	svc := testService()
	session, err := svc.GenerateSession("u1", "u1@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	id, err := svc.VerifyAccess(session.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if id.UserID != "u1" || id.Email != "u1@example.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if _, err := svc.VerifyRefresh(session.RefreshToken); err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	// Tokens are signed with different secrets and must not cross over.
	if _, err := svc.VerifyAccess(session.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token must not verify as access, got %v", err)
	}
}

func TestExpiredAccessToken(t *testing.T) {
	svc := testService()
	session, err := svc.GenerateSession("u1", "u1@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	svc.WithClock(func() time.Time { return time.Now().Add(16 * time.Minute) })
	if _, err := svc.VerifyAccess(session.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expiry error, got %v", err)
	}
	if _, err := svc.VerifyRefresh(session.RefreshToken); err != nil {
		t.Fatalf("refresh token must still be valid: %v", err)
	}
}

func TestInviteRoundTrip(t *testing.T) {
	svc := testService()
	raw, err := svc.GenerateInvite("new@example.com", "team-1", "MANAGER")
	if err != nil {
		t.Fatalf("generate invite: %v", err)
	}
	inv, err := svc.VerifyInvite(raw)
	if err != nil {
		t.Fatalf("verify invite: %v", err)
	}
	if inv.Email != "new@example.com" || inv.TeamID != "team-1" || inv.Role != "MANAGER" {
		t.Fatalf("unexpected invite: %+v", inv)
	}
	svc.WithClock(func() time.Time { return time.Now().Add(16 * time.Minute) })
	if _, err := svc.VerifyInvite(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired invite, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	svc := testService()
	session, err := svc.GenerateSession("u1", "u1@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	other := NewService(Config{Secret: "different", RefreshSecret: "also-different", AccessTTL: time.Minute, RefreshTTL: time.Minute})
	if _, err := other.VerifyAccess(session.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestMissingSecret(t *testing.T) {
	svc := NewService(Config{AccessTTL: time.Minute, RefreshTTL: time.Minute})
	if _, err := svc.GenerateSession("u1", ""); err == nil {
		t.Fatal("expected error when secret is unset")
	}
}
