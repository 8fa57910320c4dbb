package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models taskhub.yml.
type Config struct {
	Server struct {
		Addr         string `yaml:"addr"`
		BasePath     string `yaml:"base_path"`
		Origin       string `yaml:"origin"`
		CookieSecure bool   `yaml:"cookie_secure"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret         string `yaml:"jwt_secret"`
		JWTRefreshSecret  string `yaml:"jwt_refresh_secret"`
		AccessTTLMinutes  int    `yaml:"access_ttl_minutes"`
		RefreshTTLMinutes int    `yaml:"refresh_ttl_minutes"`
		InviteTTLMinutes  int    `yaml:"invite_ttl_minutes"`
		OTPTTLMinutes     int    `yaml:"otp_ttl_minutes"`
	} `yaml:"auth"`
	Mail struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"mail"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret"`
	Events         []string `yaml:"events"`
	Enabled        *bool    `yaml:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Default returns a local configuration with every TTL filled in. Secrets
// are empty and must come from the file or environment.
func Default() *Config {
	var cfg Config
	cfg.Server.Addr = ":8080"
	cfg.Server.BasePath = "/v1"
	cfg.Server.Origin = "http://localhost:8080"
	cfg.Auth.AccessTTLMinutes = 15
	cfg.Auth.RefreshTTLMinutes = 7 * 24 * 60
	cfg.Auth.InviteTTLMinutes = 15
	cfg.Auth.OTPTTLMinutes = 10
	cfg.Mail.Port = 587
	return &cfg
}

// Validate ensures the config can run a server.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("config.auth.jwt_secret is required")
	}
	if strings.TrimSpace(c.Auth.JWTRefreshSecret) == "" {
		return fmt.Errorf("config.auth.jwt_refresh_secret is required")
	}
	if c.Auth.AccessTTLMinutes <= 0 || c.Auth.RefreshTTLMinutes <= 0 {
		return fmt.Errorf("config.auth token TTLs must be positive")
	}
	if c.Auth.OTPTTLMinutes <= 0 {
		return fmt.Errorf("config.auth.otp_ttl_minutes must be positive")
	}
	if c.Mail.Enabled {
		if strings.TrimSpace(c.Mail.Host) == "" {
			return fmt.Errorf("config.mail.host is required when mail is enabled")
		}
		if strings.TrimSpace(c.Mail.From) == "" {
			return fmt.Errorf("config.mail.from is required when mail is enabled")
		}
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
	}
	return nil
}

// Parse unmarshals YAML over the defaults without validating, for callers
// that still need to layer environment overrides on top.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	return cfg, nil
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads and parses config from the given path. Validation is left
// to the caller so environment overrides can be layered on top first.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
