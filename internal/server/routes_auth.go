package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"taskhub/internal/cqrs"
	"taskhub/internal/domain"
	"taskhub/internal/engine"
	"taskhub/internal/repo"
)

type sessionOutput struct {
	SetCookie []http.Cookie   `header:"Set-Cookie"`
	Body      SessionResponse `json:"body"`
}

// registerAuth wires the authentication flows. Each route builds a command
// and dispatches it through the command bus; side effects like email
// delivery ride the event bus and never fail the request.
func registerAuth(api huma.API, cfg Config) {
	e := cfg.Engine

	execUser := func(ctx context.Context, cmdType string, payload any) (domain.User, huma.StatusError) {
		result, err := e.Commands.Execute(ctx, cqrs.NewCommand(cmdType, payload, cqrs.Metadata{Source: "http"}))
		if err != nil {
			return domain.User{}, handleError(err)
		}
		user, ok := result.(domain.User)
		if !ok {
			return domain.User{}, newAPIError(http.StatusInternalServerError, "internal_error", fmt.Sprintf("unexpected result %T", result), nil)
		}
		return user, nil
	}

	sessionOut := func(res engine.LoginResult) *sessionOutput {
		accessTTL := time.Duration(e.Config.Auth.AccessTTLMinutes) * time.Minute
		refreshTTL := time.Duration(e.Config.Auth.RefreshTTLMinutes) * time.Minute
		return &sessionOutput{
			SetCookie: sessionCookies(res.Session, accessTTL, refreshTTL, cfg.Auth.CookieSecure),
			Body: SessionResponse{
				User:         userResponse(res.User),
				AccessToken:  res.Session.AccessToken,
				RefreshToken: res.Session.RefreshToken,
			},
		}
	}

	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a new account",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body RegisterRequest `json:"body"`
	}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		user, authErr := execUser(ctx, engine.CommandRegisterUser, engine.RegisterUserPayload{
			FirstName: input.Body.FirstName,
			LastName:  input.Body.LastName,
			Username:  input.Body.Username,
			Email:     input.Body.Email,
			Password:  input.Body.Password,
		})
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(user)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "verify",
		Method:      http.MethodPost,
		Path:        "/auth/verify",
		Summary:     "Verify account with OTP",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body VerifyRequest `json:"body"`
	}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		user, authErr := execUser(ctx, engine.CommandVerifyUser, engine.VerifyUserPayload{
			Email: input.Body.Email,
			OTP:   input.Body.OTP,
		})
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(user)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Login with email and password",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*sessionOutput, error) {
		result, err := e.Commands.Execute(ctx, cqrs.NewCommand(engine.CommandLoginUser, engine.LoginUserPayload{
			Email:    input.Body.Email,
			Password: input.Body.Password,
		}, cqrs.Metadata{Source: "http"}))
		if err != nil {
			return nil, handleError(err)
		}
		res, ok := result.(engine.LoginResult)
		if !ok {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", fmt.Sprintf("unexpected result %T", result), nil)
		}
		return sessionOut(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resend-otp",
		Method:      http.MethodPost,
		Path:        "/auth/resend-otp",
		Summary:     "Resend the verification OTP",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body ResendOTPRequest `json:"body"`
	}) (*struct {
		Body StatusResponse `json:"body"`
	}, error) {
		if _, err := e.Commands.Execute(ctx, cqrs.NewCommand(engine.CommandResendOTP, engine.ResendOTPPayload{
			Email: input.Body.Email,
		}, cqrs.Metadata{Source: "http"})); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StatusResponse `json:"body"`
		}{Body: StatusResponse{Status: "ok"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "forgot-password",
		Method:      http.MethodPost,
		Path:        "/auth/forgot-password",
		Summary:     "Request a password reset OTP",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ForgotPasswordRequest `json:"body"`
	}) (*struct {
		Body StatusResponse `json:"body"`
	}, error) {
		if _, err := e.Commands.Execute(ctx, cqrs.NewCommand(engine.CommandRequestPasswordReset, engine.RequestPasswordResetPayload{
			Email: input.Body.Email,
		}, cqrs.Metadata{Source: "http"})); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StatusResponse `json:"body"`
		}{Body: StatusResponse{Status: "ok"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-password",
		Method:      http.MethodPost,
		Path:        "/auth/update-password",
		Summary:     "Set a new password using the reset OTP",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body UpdatePasswordRequest `json:"body"`
	}) (*struct {
		Body StatusResponse `json:"body"`
	}, error) {
		if _, err := e.Commands.Execute(ctx, cqrs.NewCommand(engine.CommandUpdatePassword, engine.UpdatePasswordPayload{
			Email:       input.Body.Email,
			OTP:         input.Body.OTP,
			NewPassword: input.Body.NewPassword,
		}, cqrs.Metadata{Source: "http"})); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StatusResponse `json:"body"`
		}{Body: StatusResponse{Status: "ok"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "invite-signup",
		Method:        http.MethodPost,
		Path:          "/auth/invite-signup",
		Summary:       "Create an account from a team invitation",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body InviteSignupRequest `json:"body"`
	}) (*sessionOutput, error) {
		result, err := e.Commands.Execute(ctx, cqrs.NewCommand(engine.CommandInviteSignup, engine.InviteSignupPayload{
			FirstName: input.Body.FirstName,
			LastName:  input.Body.LastName,
			Username:  input.Body.Username,
			Password:  input.Body.Password,
			Token:     input.Body.Token,
		}, cqrs.Metadata{Source: "http"}))
		if err != nil {
			return nil, handleError(err)
		}
		res, ok := result.(engine.LoginResult)
		if !ok {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", fmt.Sprintf("unexpected result %T", result), nil)
		}
		return sessionOut(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Rotate the session token pair",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		RefreshCookie http.Cookie `cookie:"refresh_token"`
		Body          struct {
			RefreshToken string `json:"refresh_token,omitempty"`
		} `json:"body"`
	}) (*sessionOutput, error) {
		raw := input.Body.RefreshToken
		if raw == "" {
			raw = input.RefreshCookie.Value
		}
		if raw == "" {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "refresh token required", nil)
		}
		identity, err := cfg.Auth.Tokens.VerifyRefresh(raw)
		if err != nil {
			return nil, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
		}
		user, err := e.Repo.GetUser(ctx, identity.UserID)
		if err != nil {
			if err == repo.ErrNotFound {
				return nil, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
			}
			return nil, handleError(err)
		}
		// The stored token is the only valid one; rotation revokes the rest.
		if user.RefreshToken == nil || *user.RefreshToken != raw || !user.IsActive {
			return nil, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
		}
		session, err := cfg.Auth.Tokens.GenerateSession(user.ID, user.Email)
		if err != nil {
			return nil, handleError(err)
		}
		if err := e.Repo.SetUserRefreshToken(ctx, user.ID, session.RefreshToken, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return nil, handleError(err)
		}
		return sessionOut(engine.LoginResult{User: user, Session: session}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/auth/logout",
		Summary:     "End the session",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		SetCookie []http.Cookie  `header:"Set-Cookie"`
		Body      StatusResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.SetUserRefreshToken(ctx, userID, "", time.Now().UTC().Format(time.RFC3339)); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			SetCookie []http.Cookie  `header:"Set-Cookie"`
			Body      StatusResponse `json:"body"`
		}{
			SetCookie: clearedSessionCookies(cfg.Auth.CookieSecure),
			Body:      StatusResponse{Status: "ok"},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		result, err := e.Queries.Execute(ctx, cqrs.NewQuery(engine.QueryGetUserByID, engine.GetUserByIDPayload{
			UserID: userID,
		}, cqrs.Metadata{UserID: userID, Source: "http"}))
		if err != nil {
			return nil, handleError(err)
		}
		user, ok := result.(domain.User)
		if !ok {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", fmt.Sprintf("unexpected result %T", result), nil)
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(user)}, nil
	})
}
