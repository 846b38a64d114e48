package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/faucetdb/foliogate/internal/model"
)

// YAMLConfig represents the top-level foliogate configuration file.
type YAMLConfig struct {
	Server   ServerConfig    `yaml:"server"`
	Auth     AuthConfig      `yaml:"auth"`
	Mail     MailConfig      `yaml:"mail"`
	Site     SiteConfig      `yaml:"site"`
	Gate     GateConfig      `yaml:"gate"`
	Projects []model.Project `yaml:"projects"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host"`
	Port            int        `yaml:"port"`
	MaxBodySize     string     `yaml:"max_body_size"`
	RateLimit       int        `yaml:"rate_limit"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	CORS            CORSConfig `yaml:"cors"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// AuthConfig holds the shared secrets checked by /api/validate-password.
// Either may be plain text or a bcrypt hash.
type AuthConfig struct {
	AdminPassword   string `yaml:"admin_password"`
	ProjectPassword string `yaml:"project_password"`
}

// MailConfig controls outbound email.
type MailConfig struct {
	Driver     string `yaml:"driver"` // smtp or log
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	From       string `yaml:"from"`
	AdminEmail string `yaml:"admin_email"`
	Timeout    string `yaml:"timeout"`
}

// SiteConfig describes the public site that access links point at.
type SiteConfig struct {
	URL     string `yaml:"url"`
	Owner   string `yaml:"owner"`
	Catalog string `yaml:"catalog"`
}

// GateConfig controls the client-side gate.
type GateConfig struct {
	Server       string `yaml:"server"`
	Store        string `yaml:"store"` // sqlite, file or memory
	ExpiryHours  int    `yaml:"expiry_hours"`
	CheckTimeout string `yaml:"check_timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// LoadYAMLConfig reads and parses a YAML configuration file. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before parsing.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxBodySize:     "64KiB",
			RateLimit:       30,
			ShutdownTimeout: "30s",
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
		},
		Mail: MailConfig{
			Driver:  "smtp",
			Host:    "localhost",
			Port:    587,
			From:    "Portfolio Access <onboarding@resend.dev>",
			Timeout: "10s",
		},
		Site: SiteConfig{
			URL: "http://localhost:5173",
		},
		Gate: GateConfig{
			Server:       "http://localhost:8080",
			Store:        "sqlite",
			ExpiryHours:  24,
			CheckTimeout: "10s",
		},
		Projects: []model.Project{
			{Slug: "sample-project", Title: "Sample Project", Protected: true},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	cfg := DefaultYAMLConfig()
	cfg.Auth = AuthConfig{
		AdminPassword:   "${ADMIN_PASSWORD}",
		ProjectPassword: "${PROJECT_PASSWORD}",
	}
	cfg.Mail.AdminEmail = "${ADMIN_EMAIL}"
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
