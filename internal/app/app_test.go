package app

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDiscoversWorkspaceFile(t *testing.T) {
	workspace := t.TempDir()
	yml := `
server:
  addr: ":7777"
auth:
  jwt_secret: from-file
  jwt_refresh_secret: from-file-too
`
	if err := os.WriteFile(filepath.Join(workspace, "taskhub.yml"), []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(workspace, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7777" || cfg.Auth.JWTSecret != "from-file" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigEnvOverridesSecrets(t *testing.T) {
	t.Setenv("TASKHUB_JWT_SECRET", "from-env")
	t.Setenv("TASKHUB_JWT_REFRESH_SECRET", "refresh-from-env")
	cfg, err := LoadConfig(t.TempDir(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" || cfg.Auth.JWTRefreshSecret != "refresh-from-env" {
		t.Fatalf("env secrets not applied: %+v", cfg.Auth)
	}
}

func TestLoadConfigRejectsMissingSecrets(t *testing.T) {
	if _, err := LoadConfig(t.TempDir(), ""); err == nil {
		t.Fatal("expected validation error without secrets")
	}
}

func TestNewWiresHandler(t *testing.T) {
	t.Setenv("TASKHUB_JWT_SECRET", "s1")
	t.Setenv("TASKHUB_JWT_REFRESH_SECRET", "s2")
	workspace := t.TempDir()
	cfg, err := LoadConfig(workspace, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	a, err := New(workspace, cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()
	handler, err := a.Handler()
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if handler == nil {
		t.Fatal("expected handler")
	}
}
