package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"taskhub/internal/token"
)

// AuthConfig wires the session token verifier into the middleware.
type AuthConfig struct {
	Tokens       *token.Service
	CookieSecure bool
	Logger       *log.Logger
}

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID string
	Email  string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func userIDFromContext(ctx context.Context) (string, huma.StatusError) {
	if p, ok := principalFromContext(ctx); ok && p.UserID != "" {
		return p.UserID, nil
	}
	return "", newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// publicPaths lists the endpoints reachable without a session, relative to
// the base path.
var publicPaths = []string{
	"health",
	"openapi.json",
	"auth/register",
	"auth/verify",
	"auth/login",
	"auth/resend-otp",
	"auth/forgot-password",
	"auth/update-password",
	"auth/invite-signup",
	"auth/refresh",
}

func newAuthMiddleware(basePath string, cfg AuthConfig) func(http.Handler) http.Handler {
	open := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		open[path.Join(basePath, p)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Only enforce for API base path.
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if _, ok := open[req.URL.Path]; ok {
				next.ServeHTTP(w, req)
				return
			}

			raw := ""
			if authz := strings.TrimSpace(req.Header.Get("Authorization")); authz != "" {
				t, ok := bearerToken(authz)
				if !ok {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				raw = t
			} else if c, err := req.Cookie(accessCookie); err == nil {
				raw = c.Value
			}
			if raw == "" {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
				return
			}
			identity, err := cfg.Tokens.VerifyAccess(raw)
			if err != nil {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
				return
			}
			ctx := withPrincipal(req.Context(), Principal{UserID: identity.UserID, Email: identity.Email})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

func sessionCookies(s token.Session, accessTTL, refreshTTL time.Duration, secure bool) []http.Cookie {
	return []http.Cookie{
		{
			Name:     accessCookie,
			Value:    s.AccessToken,
			Path:     "/",
			MaxAge:   int(accessTTL / time.Second),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		},
		{
			Name:     refreshCookie,
			Value:    s.RefreshToken,
			Path:     "/",
			MaxAge:   int(refreshTTL / time.Second),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		},
	}
}

func clearedSessionCookies(secure bool) []http.Cookie {
	return []http.Cookie{
		{Name: accessCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: secure, SameSite: http.SameSiteStrictMode},
		{Name: refreshCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: secure, SameSite: http.SameSiteStrictMode},
	}
}
