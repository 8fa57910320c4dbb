package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validYAML() string {
	return `
server:
  addr: ":9090"
auth:
  jwt_secret: s1
  jwt_refresh_secret: s2
`
}

func TestFromYAMLAppliesDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(validYAML()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr override lost: %s", cfg.Server.Addr)
	}
	if cfg.Server.BasePath != "/v1" {
		t.Fatalf("base path default missing: %s", cfg.Server.BasePath)
	}
	if cfg.Auth.AccessTTLMinutes != 15 || cfg.Auth.OTPTTLMinutes != 10 {
		t.Fatalf("ttl defaults missing: %+v", cfg.Auth)
	}
}

func TestValidateRequiresSecrets(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("expected jwt_secret error, got %v", err)
	}
}

func TestValidateMailRequiresHost(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "a"
	cfg.Auth.JWTRefreshSecret = "b"
	cfg.Mail.Enabled = true
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "mail.host") {
		t.Fatalf("expected mail host error, got %v", err)
	}
}

func TestValidateWebhookURL(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "a"
	cfg.Auth.JWTRefreshSecret = "b"
	cfg.Webhooks = []WebhookConfig{{URL: ""}}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "webhooks[0]") {
		t.Fatalf("expected webhook url error, got %v", err)
	}
}

func TestParseReadsCookieSecure(t *testing.T) {
	if Default().Server.CookieSecure {
		t.Fatal("cookie_secure must default to off for local use")
	}
	cfg, err := Parse([]byte("server:\n  cookie_secure: true\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.Server.CookieSecure {
		t.Fatal("expected cookie_secure to be set")
	}
}

func TestFromFileLeavesValidationToCaller(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskhub.yml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":7070\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := FromFile(path)
	if err != nil {
		t.Fatalf("from file: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("addr not read: %s", cfg.Server.Addr)
	}
	// Secrets may still arrive from the environment, so the file alone
	// does not have to validate.
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation to fail without secrets")
	}
	if _, err := FromFile(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseSkipsValidation(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  addr: \"\"\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Addr != "" {
		t.Fatalf("expected empty addr preserved, got %q", cfg.Server.Addr)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation to fail afterwards")
	}
}

func TestInvalidYAML(t *testing.T) {
	if _, err := FromYAML([]byte("server: [")); err == nil {
		t.Fatal("expected yaml error")
	}
}
