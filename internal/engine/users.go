package engine

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/cqrs"
	"taskhub/internal/domain"
	"taskhub/internal/repo"
	"taskhub/internal/token"
)

const bcryptCost = 12

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// LoginResult is returned by the login and invite-signup commands.
type LoginResult struct {
	User    domain.User
	Session token.Session
}

func payloadAs[T any](cmd cqrs.Command) (T, error) {
	payload, ok := cmd.Payload.(T)
	if !ok {
		return payload, fmt.Errorf("unexpected payload %T for command %s", cmd.Payload, cmd.Type)
	}
	return payload, nil
}

func (e Engine) handleRegisterUser(ctx context.Context, cmd cqrs.Command) (any, error) {
	p, err := payloadAs[RegisterUserPayload](cmd)
	if err != nil {
		return nil, err
	}
	if p.FirstName == "" || p.LastName == "" || p.Username == "" || p.Email == "" || p.Password == "" {
		return nil, ErrFieldsRequired
	}
	if !emailPattern.MatchString(p.Email) {
		return nil, ErrInvalidEmail
	}
	if err := validatePassword(p.Password); err != nil {
		return nil, err
	}
	exists, err := e.Repo.UserExists(ctx, p.Email, p.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	otp, err := generateOTP()
	if err != nil {
		return nil, err
	}
	now := e.nowRFC3339()
	expiresAt := e.now().UTC().Add(time.Duration(e.Config.Auth.OTPTTLMinutes) * time.Minute).Format(time.RFC3339)
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        p.Email,
		Username:     p.Username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PasswordHash: string(hash),
		IsVerified:   false,
		IsActive:     true,
		OTP:          &otp,
		OTPExpiresAt: &expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.Repo.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	// Best-effort side effects; publish never fails the registration.
	_ = e.Events.Publish(ctx, cqrs.NewEvent(EventUserRegistered, UserRegisteredPayload{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		OTP:       otp,
		ExpiresAt: expiresAt,
	}, cmd.Meta))
	return user, nil
}

func (e Engine) handleVerifyUser(ctx context.Context, cmd cqrs.Command) (any, error) {
	p, err := payloadAs[VerifyUserPayload](cmd)
	if err != nil {
		return nil, err
	}
	if p.Email == "" || p.OTP == "" {
		return nil, ErrFieldsRequired
	}
	user, err := e.Repo.GetUserByEmail(ctx, p.Email)
	if err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}
	if !e.otpValid(user, p.OTP) {
		return nil, ErrInvalidOTP
	}
	if err := e.Repo.MarkUserVerified(ctx, user.ID, e.nowRFC3339()); err != nil {
		return nil, err
	}
	user.IsVerified = true
	user.OTP = nil
	user.OTPExpiresAt = nil
	_ = e.Events.Publish(ctx, cqrs.NewEvent(EventUserVerified, UserVerifiedPayload{
		UserID: user.ID,
		Email:  user.Email,
	}, cmd.Meta))
	return user, nil
}

func (e Engine) handleLoginUser(ctx context.Context, cmd cqrs.Command) (any, error) {
	p, err := payloadAs[LoginUserPayload](cmd)
	if err != nil {
		return nil, err
	}
	if p.Email == "" || p.Password == "" {
		return nil, ErrFieldsRequired
	}
	user, err := e.Repo.GetUserByEmail(ctx, p.Email)
	if err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsVerified {
		return nil, ErrUserNotVerified
	}
	if !user.IsActive {
		return nil, ErrUserDeactivated
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(p.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	session, err := e.Tokens.GenerateSession(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	if err := e.Repo.SetUserRefreshToken(ctx, user.ID, session.RefreshToken, e.nowRFC3339()); err != nil {
		return nil, err
	}
	return LoginResult{User: user, Session: session}, nil
}

func (e Engine) handleResendOTP(ctx context.Context, cmd cqrs.Command) (any, error) {
	p, err := payloadAs[ResendOTPPayload](cmd)
	if err != nil {
		return nil, err
	}
	if p.Email == "" {
		return nil, ErrFieldsRequired
	}
	user, err := e.Repo.GetUserByEmail(ctx, p.Email)
	if err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.IsVerified {
		return nil, fmt.Errorf("user already verified")
	}
	otp, expiresAt, err := e.rotateOTP(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	_ = e.Events.Publish(ctx, cqrs.NewEvent(EventUserRegistered, UserRegisteredPayload{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		OTP:       otp,
		ExpiresAt: expiresAt,
	}, cmd.Meta))
	return user, nil
}

func (e Engine) handleRequestPasswordReset(ctx context.Context, cmd cqrs.Command) (any, error) {
	p, err := payloadAs[RequestPasswordResetPayload](cmd)
	if err != nil {
		return nil, err
	}
	if p.Email == "" {
		return nil, ErrFieldsRequired
	}
	user, err := e.Repo.GetUserByEmail(ctx, p.Email)
	if err != nil {
		if err == repo.ErrNotFound {
			// Do not reveal whether the address is registered.
			return map[string]string{"status": "ok"}, nil
		}
		return nil, err
	}
	otp, expiresAt, err := e.rotateOTP(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	_ = e.Events.Publish(ctx, cqrs.NewEvent(EventPasswordResetRequested, PasswordResetRequestedPayload{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		OTP:       otp,
		ExpiresAt: expiresAt,
	}, cmd.Meta))
	return map[string]string{"status": "ok"}, nil
}

func (e Engine) handleUpdatePassword(ctx context.Context, cmd cqrs.Command) (any, error) {
	p, err := payloadAs[UpdatePasswordPayload](cmd)
	if err != nil {
		return nil, err
	}
	if p.Email == "" || p.OTP == "" || p.NewPassword == "" {
		return nil, ErrFieldsRequired
	}
	if err := validatePassword(p.NewPassword); err != nil {
		return nil, err
	}
	user, err := e.Repo.GetUserByEmail(ctx, p.Email)
	if err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}
	if !e.otpValid(user, p.OTP) {
		return nil, ErrInvalidOTP
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(p.NewPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := e.nowRFC3339()
	if err := e.Repo.SetUserPassword(ctx, user.ID, string(hash), now); err != nil {
		return nil, err
	}
	// Existing sessions become invalid with the next refresh.
	if err := e.Repo.SetUserRefreshToken(ctx, user.ID, "", now); err != nil {
		return nil, err
	}
	return map[string]string{"status": "ok"}, nil
}

func (e Engine) handleInviteSignup(ctx context.Context, cmd cqrs.Command) (any, error) {
	p, err := payloadAs[InviteSignupPayload](cmd)
	if err != nil {
		return nil, err
	}
	if p.FirstName == "" || p.LastName == "" || p.Username == "" || p.Password == "" || p.Token == "" {
		return nil, ErrFieldsRequired
	}
	claim, err := e.Tokens.VerifyInvite(p.Token)
	if err != nil {
		return nil, ErrInviteInvalid
	}
	invite, err := e.Repo.GetInviteByToken(ctx, p.Token)
	if err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrInviteInvalid
		}
		return nil, err
	}
	if invite.Status != "PENDING" {
		return nil, ErrInviteInvalid
	}
	if expires, perr := time.Parse(time.RFC3339, invite.ExpiresAt); perr == nil && e.now().After(expires) {
		return nil, ErrInviteInvalid
	}
	if err := validatePassword(p.Password); err != nil {
		return nil, err
	}
	exists, err := e.Repo.UserExists(ctx, claim.Email, p.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := e.nowRFC3339()
	// The invite proved control of the mailbox, so no OTP round-trip.
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        claim.Email,
		Username:     p.Username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PasswordHash: string(hash),
		IsVerified:   true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.Repo.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	if err := e.Repo.AddTeamMember(ctx, domain.TeamMember{
		TeamID:   claim.TeamID,
		UserID:   user.ID,
		Role:     invite.Role,
		JoinedAt: now,
	}); err != nil {
		return nil, err
	}
	if err := e.Repo.SetInviteStatus(ctx, invite.ID, "ACCEPTED"); err != nil {
		return nil, err
	}
	session, err := e.Tokens.GenerateSession(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	if err := e.Repo.SetUserRefreshToken(ctx, user.ID, session.RefreshToken, now); err != nil {
		return nil, err
	}
	_ = e.Events.Publish(ctx, cqrs.NewEvent(EventUserVerified, UserVerifiedPayload{
		UserID: user.ID,
		Email:  user.Email,
	}, cmd.Meta))
	return LoginResult{User: user, Session: session}, nil
}

func (e Engine) handleGetUserByID(ctx context.Context, q cqrs.Query) (any, error) {
	p, ok := q.Payload.(GetUserByIDPayload)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T for query %s", q.Payload, q.Type)
	}
	return e.Repo.GetUser(ctx, p.UserID)
}

func (e Engine) rotateOTP(ctx context.Context, userID string) (otp, expiresAt string, err error) {
	otp, err = generateOTP()
	if err != nil {
		return "", "", err
	}
	expiresAt = e.now().UTC().Add(time.Duration(e.Config.Auth.OTPTTLMinutes) * time.Minute).Format(time.RFC3339)
	if err := e.Repo.SetUserOTP(ctx, userID, otp, expiresAt, e.nowRFC3339()); err != nil {
		return "", "", err
	}
	return otp, expiresAt, nil
}

func (e Engine) otpValid(user domain.User, otp string) bool {
	if user.OTP == nil || user.OTPExpiresAt == nil || *user.OTP != otp {
		return false
	}
	expires, err := time.Parse(time.RFC3339, *user.OTPExpiresAt)
	if err != nil {
		return false
	}
	return e.now().Before(expires)
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("invalid password: must be at least 6 characters long")
	}
	var hasLower, hasUpper, hasDigit bool
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= '0' && c <= '9':
			hasDigit = true
		}
	}
	switch {
	case !hasLower:
		return fmt.Errorf("invalid password: must contain a lowercase letter")
	case !hasUpper:
		return fmt.Errorf("invalid password: must contain an uppercase letter")
	case !hasDigit:
		return fmt.Errorf("invalid password: must contain a number")
	}
	return nil
}
