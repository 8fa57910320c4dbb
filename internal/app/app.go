// Package app is the composition root: it opens the workspace database,
// applies migrations, builds the buses and collaborators, and hands back a
// fully wired engine.
package app

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"taskhub/internal/config"
	"taskhub/internal/cqrs"
	"taskhub/internal/db"
	"taskhub/internal/engine"
	"taskhub/internal/mail"
	"taskhub/internal/migrate"
	"taskhub/internal/server"
	"taskhub/internal/token"
)

// App holds the wired application.
type App struct {
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
	Tokens *token.Service
	Logger *log.Logger
}

// LoadConfig reads taskhub.yml from the workspace when present, applying
// environment overrides for the secrets before validating.
func LoadConfig(workspace, configPath string) (*config.Config, error) {
	if configPath == "" {
		candidate := filepath.Join(workspace, "taskhub.yml")
		if _, err := os.Stat(candidate); err == nil {
			configPath = candidate
		}
	}
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.FromFile(configPath); err != nil {
			return nil, err
		}
	}
	applyEnvSecrets(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvSecrets(cfg *config.Config) {
	if v := os.Getenv("TASKHUB_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("TASKHUB_JWT_REFRESH_SECRET"); v != "" {
		cfg.Auth.JWTRefreshSecret = v
	}
	if v := os.Getenv("TASKHUB_SMTP_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}
}

// New opens the database, migrates it, and wires the engine onto fresh
// buses. The caller owns Close.
func New(workspace string, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	tokens := token.NewService(token.Config{
		Secret:        cfg.Auth.JWTSecret,
		RefreshSecret: cfg.Auth.JWTRefreshSecret,
		AccessTTL:     time.Duration(cfg.Auth.AccessTTLMinutes) * time.Minute,
		RefreshTTL:    time.Duration(cfg.Auth.RefreshTTLMinutes) * time.Minute,
		InviteTTL:     time.Duration(cfg.Auth.InviteTTLMinutes) * time.Minute,
	})
	var sender mail.Sender
	if cfg.Mail.Enabled {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
		})
	} else {
		sender = mail.NewLogSender(logger)
	}
	e := engine.New(engine.Deps{
		DB:       conn,
		Config:   cfg,
		Tokens:   tokens,
		Mail:     sender,
		Commands: cqrs.NewCommandBus(logger),
		Queries:  cqrs.NewQueryBus(logger),
		Events:   cqrs.NewEventBus(logger),
		Logger:   logger,
	})
	e.RegisterHandlers()
	return &App{
		DB:     conn,
		Config: cfg,
		Engine: e,
		Tokens: tokens,
		Logger: logger,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// Handler builds the HTTP API handler and starts the webhook dispatcher.
func (a *App) Handler() (http.Handler, error) {
	handler, err := server.New(server.Config{
		Engine:   a.Engine,
		BasePath: a.Config.Server.BasePath,
		Auth: server.AuthConfig{
			Tokens:       a.Tokens,
			CookieSecure: a.Config.Server.CookieSecure,
			Logger:       a.Logger,
		},
	})
	if err != nil {
		return nil, err
	}
	server.StartWebhookDispatcher(a.Engine)
	return handler, nil
}
