package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskhub/internal/config"
	"taskhub/internal/cqrs"
	"taskhub/internal/db"
	"taskhub/internal/domain"
	"taskhub/internal/engine"
	"taskhub/internal/mail"
	"taskhub/internal/migrate"
	"taskhub/internal/token"
)

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestServer(t *testing.T) (*httptest.Server, engine.Engine) {
	t.Helper()
	return newTestServerWithCookies(t, false)
}

func newTestServerWithCookies(t *testing.T, cookieSecure bool) (*httptest.Server, engine.Engine) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.JWTRefreshSecret = "test-refresh-secret"
	logger := log.New(io.Discard, "", 0)
	tokens := token.NewService(token.Config{
		Secret:        cfg.Auth.JWTSecret,
		RefreshSecret: cfg.Auth.JWTRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		InviteTTL:     15 * time.Minute,
	})
	e := engine.New(engine.Deps{
		DB:       conn,
		Config:   cfg,
		Tokens:   tokens,
		Mail:     mail.NewLogSender(logger),
		Commands: cqrs.NewCommandBus(logger),
		Queries:  cqrs.NewQueryBus(logger),
		Events:   cqrs.NewEventBus(logger),
		Logger:   logger,
	})
	e.RegisterHandlers()
	handler, err := New(Config{Engine: e, Auth: AuthConfig{Tokens: tokens, CookieSecure: cookieSecure, Logger: logger}})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, e
}

// doJSON issues a request and decodes the response body into out when the
// pointer is non-nil. It returns the status code and raw body.
func doJSON(t *testing.T, method, url, bearer string, body, out any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode %s %s (%d): %v\n%s", method, url, resp.StatusCode, err, raw)
		}
	}
	return resp.StatusCode, raw
}

// signup registers, verifies and logs a user in over HTTP, returning the
// access token.
func signup(t *testing.T, srv *httptest.Server, e engine.Engine, email, username string) string {
	t.Helper()
	status, raw := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/register", "", RegisterRequest{
		FirstName: "Test", LastName: "User", Username: username, Email: email, Password: "Passw0rd",
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d\n%s", status, raw)
	}
	user, err := e.Repo.GetUserByEmail(context.Background(), email)
	if err != nil || user.OTP == nil {
		t.Fatalf("load OTP: %v", err)
	}
	status, raw = doJSON(t, http.MethodPost, srv.URL+"/v1/auth/verify", "", VerifyRequest{Email: email, OTP: *user.OTP}, nil)
	if status != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d\n%s", status, raw)
	}
	var session SessionResponse
	status, raw = doJSON(t, http.MethodPost, srv.URL+"/v1/auth/login", "", LoginRequest{Email: email, Password: "Passw0rd"}, &session)
	if status != http.StatusOK {
		t.Fatalf("login: expected 200, got %d\n%s", status, raw)
	}
	if session.AccessToken == "" {
		t.Fatal("expected access token")
	}
	return session.AccessToken
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)
	var body StatusResponse
	status, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/health", "", nil, &body)
	if status != http.StatusOK || body.Status != "ok" {
		t.Fatalf("expected 200 ok, got %d %+v", status, body)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	var envelope errorEnvelope
	status, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/projects", "", nil, &envelope)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized envelope, got %+v", envelope)
	}
}

func TestLoginSetsSessionCookies(t *testing.T) {
	srv, e := newTestServer(t)
	signup(t, srv, e, "cookie@example.com", "cookie")

	raw, _ := json.Marshal(LoginRequest{Email: "cookie@example.com", Password: "Passw0rd"})
	resp, err := http.Post(srv.URL+"/v1/auth/login", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	names := map[string]bool{}
	for _, c := range resp.Cookies() {
		names[c.Name] = true
		if !c.HttpOnly {
			t.Fatalf("cookie %s must be HTTP-only", c.Name)
		}
	}
	if !names["access_token"] || !names["refresh_token"] {
		t.Fatalf("expected session cookies, got %v", names)
	}
}

func TestCookieSecureFlagMarksSessionCookies(t *testing.T) {
	srv, e := newTestServerWithCookies(t, true)
	signup(t, srv, e, "secure@example.com", "secure")

	raw, _ := json.Marshal(LoginRequest{Email: "secure@example.com", Password: "Passw0rd"})
	resp, err := http.Post(srv.URL+"/v1/auth/login", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if len(resp.Cookies()) == 0 {
		t.Fatal("expected session cookies")
	}
	for _, c := range resp.Cookies() {
		if !c.Secure {
			t.Fatalf("cookie %s must carry the Secure attribute", c.Name)
		}
	}
}

func TestProjectAndTaskFlow(t *testing.T) {
	srv, e := newTestServer(t)
	alice := signup(t, srv, e, "alice@example.com", "alice")
	mallory := signup(t, srv, e, "mallory@example.com", "mallory")

	var me UserResponse
	status, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/me", alice, nil, &me)
	if status != http.StatusOK || me.Email != "alice@example.com" {
		t.Fatalf("me: got %d %+v", status, me)
	}

	var project domain.Project
	status, raw := doJSON(t, http.MethodPost, srv.URL+"/v1/projects", alice, CreateProjectRequest{Name: "Apollo"}, &project)
	if status != http.StatusCreated {
		t.Fatalf("create project: expected 201, got %d\n%s", status, raw)
	}
	if project.Status != "ACTIVE" || project.OwnerID != me.ID {
		t.Fatalf("unexpected project: %+v", project)
	}

	var task domain.Task
	status, raw = doJSON(t, http.MethodPost, srv.URL+"/v1/tasks", alice, CreateTaskRequest{
		ProjectID: project.ID, Title: "Design",
	}, &task)
	if status != http.StatusCreated {
		t.Fatalf("create task: expected 201, got %d\n%s", status, raw)
	}
	if task.Status != "TODO" || task.Priority != "MEDIUM" {
		t.Fatalf("expected defaults, got %+v", task)
	}

	var updated domain.Task
	status, raw = doJSON(t, http.MethodPatch, srv.URL+"/v1/tasks/"+task.ID, alice, UpdateTaskRequest{Status: "IN_PROGRESS"}, &updated)
	if status != http.StatusOK || updated.Status != "IN_PROGRESS" {
		t.Fatalf("update task: got %d %+v\n%s", status, updated, raw)
	}

	var list []domain.Task
	status, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/tasks?project_id="+project.ID, alice, nil, &list)
	if status != http.StatusOK || len(list) != 1 {
		t.Fatalf("list tasks: got %d, %d items", status, len(list))
	}

	// Another user cannot see or touch the project.
	var envelope errorEnvelope
	status, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/projects/"+project.ID, mallory, nil, &envelope)
	if status != http.StatusForbidden || envelope.Error.Code != "forbidden" {
		t.Fatalf("expected 403 forbidden, got %d %+v", status, envelope)
	}
	if envelope.Error.Details["resource_type"] != "PROJECT" {
		t.Fatalf("expected resource_type detail, got %+v", envelope.Error.Details)
	}
	var foreign []domain.Project
	status, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/projects", mallory, nil, &foreign)
	if status != http.StatusOK || len(foreign) != 0 {
		t.Fatalf("outsider list: got %d, %d items", status, len(foreign))
	}

	// Unknown project is a 404, not a 403.
	status, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/projects/missing", alice, nil, &envelope)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestRegisterErrorEnvelopes(t *testing.T) {
	srv, e := newTestServer(t)
	signup(t, srv, e, "dup@example.com", "dup")

	var envelope errorEnvelope
	status, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/register", "", RegisterRequest{
		FirstName: "Test", LastName: "User", Username: "dup", Email: "dup@example.com", Password: "Passw0rd",
	}, &envelope)
	if status != http.StatusConflict || envelope.Error.Code != "user_exists" {
		t.Fatalf("expected 409 user_exists, got %d %+v", status, envelope)
	}

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/auth/register", "", RegisterRequest{Email: "x@example.com"}, &envelope)
	if status != http.StatusBadRequest || envelope.Error.Code != "bad_request" {
		t.Fatalf("expected 400 bad_request, got %d %+v", status, envelope)
	}

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/auth/login", "", LoginRequest{
		Email: "dup@example.com", Password: "nope",
	}, &envelope)
	if status != http.StatusUnauthorized || envelope.Error.Code != "invalid_credentials" {
		t.Fatalf("expected 401 invalid_credentials, got %d %+v", status, envelope)
	}
}

func TestRefreshRotation(t *testing.T) {
	srv, e := newTestServer(t)
	signup(t, srv, e, "rot@example.com", "rot")

	var session SessionResponse
	status, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/login", "", LoginRequest{
		Email: "rot@example.com", Password: "Passw0rd",
	}, &session)
	if status != http.StatusOK {
		t.Fatalf("login: got %d", status)
	}

	var rotated SessionResponse
	status, raw := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/refresh", "", map[string]string{
		"refresh_token": session.RefreshToken,
	}, &rotated)
	if status != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d\n%s", status, raw)
	}
	if rotated.RefreshToken == "" || rotated.RefreshToken == session.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}

	// The old token was revoked by the rotation.
	var envelope errorEnvelope
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/auth/refresh", "", map[string]string{
		"refresh_token": session.RefreshToken,
	}, &envelope)
	if status != http.StatusUnauthorized {
		t.Fatalf("stale refresh: expected 401, got %d", status)
	}
}

func TestTeamRoutes(t *testing.T) {
	srv, e := newTestServer(t)
	owner := signup(t, srv, e, "owner@example.com", "owner")

	var project domain.Project
	doJSON(t, http.MethodPost, srv.URL+"/v1/projects", owner, CreateProjectRequest{Name: "Apollo"}, &project)

	var team domain.Team
	status, raw := doJSON(t, http.MethodPost, srv.URL+"/v1/projects/"+project.ID+"/teams", owner, CreateTeamRequest{Name: "Crew"}, &team)
	if status != http.StatusCreated {
		t.Fatalf("create team: expected 201, got %d\n%s", status, raw)
	}

	var members []domain.TeamMember
	status, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/teams/"+team.ID+"/members", owner, nil, &members)
	if status != http.StatusOK || len(members) != 1 {
		t.Fatalf("members: got %d, %d rows", status, len(members))
	}

	var invite InviteResponse
	status, raw = doJSON(t, http.MethodPost, srv.URL+"/v1/teams/"+team.ID+"/invites", owner, CreateInviteRequest{
		Email: "new@example.com", Role: "MEMBER",
	}, &invite)
	if status != http.StatusCreated {
		t.Fatalf("invite: expected 201, got %d\n%s", status, raw)
	}
	if invite.Status != "PENDING" || invite.Email != "new@example.com" {
		t.Fatalf("unexpected invite: %+v", invite)
	}

	// The raw token never leaves the server; it travels by email only.
	if strings.Contains(string(raw), "\"token\"") {
		t.Fatalf("invite response must not expose the token: %s", raw)
	}
}
