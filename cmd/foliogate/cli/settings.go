package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/faucetdb/foliogate/internal/config"
)

// stringSetting maps a viper key onto a field of the YAML configuration.
// envs are extra variable names accepted besides FOLIOGATE_<KEY>.
type stringSetting struct {
	key   string
	envs  []string
	field func(*config.YAMLConfig) *string
}

type intSetting struct {
	key   string
	envs  []string
	field func(*config.YAMLConfig) *int
}

var stringSettings = []stringSetting{
	{"auth.admin_password", []string{"ADMIN_PASSWORD"}, func(c *config.YAMLConfig) *string { return &c.Auth.AdminPassword }},
	{"auth.project_password", []string{"PROJECT_PASSWORD"}, func(c *config.YAMLConfig) *string { return &c.Auth.ProjectPassword }},
	{"mail.driver", nil, func(c *config.YAMLConfig) *string { return &c.Mail.Driver }},
	{"mail.host", []string{"SMTP_HOST"}, func(c *config.YAMLConfig) *string { return &c.Mail.Host }},
	{"mail.username", []string{"SMTP_USERNAME", "SMTP_USER"}, func(c *config.YAMLConfig) *string { return &c.Mail.Username }},
	{"mail.password", []string{"SMTP_PASSWORD"}, func(c *config.YAMLConfig) *string { return &c.Mail.Password }},
	{"mail.from", []string{"EMAIL_FROM"}, func(c *config.YAMLConfig) *string { return &c.Mail.From }},
	{"mail.admin_email", []string{"ADMIN_EMAIL"}, func(c *config.YAMLConfig) *string { return &c.Mail.AdminEmail }},
	{"mail.timeout", nil, func(c *config.YAMLConfig) *string { return &c.Mail.Timeout }},
	{"site.url", []string{"SITE_URL"}, func(c *config.YAMLConfig) *string { return &c.Site.URL }},
	{"site.owner", nil, func(c *config.YAMLConfig) *string { return &c.Site.Owner }},
	{"site.catalog", nil, func(c *config.YAMLConfig) *string { return &c.Site.Catalog }},
	{"gate.server", []string{"API_URL"}, func(c *config.YAMLConfig) *string { return &c.Gate.Server }},
	{"gate.store", nil, func(c *config.YAMLConfig) *string { return &c.Gate.Store }},
	{"gate.check_timeout", nil, func(c *config.YAMLConfig) *string { return &c.Gate.CheckTimeout }},
	{"server.host", nil, func(c *config.YAMLConfig) *string { return &c.Server.Host }},
	{"server.max_body_size", nil, func(c *config.YAMLConfig) *string { return &c.Server.MaxBodySize }},
	{"server.shutdown_timeout", nil, func(c *config.YAMLConfig) *string { return &c.Server.ShutdownTimeout }},
	{"logging.level", nil, func(c *config.YAMLConfig) *string { return &c.Logging.Level }},
	{"logging.format", nil, func(c *config.YAMLConfig) *string { return &c.Logging.Format }},
	{"logging.file", nil, func(c *config.YAMLConfig) *string { return &c.Logging.File }},
}

var intSettings = []intSetting{
	{"server.port", []string{"PORT"}, func(c *config.YAMLConfig) *int { return &c.Server.Port }},
	{"server.rate_limit", nil, func(c *config.YAMLConfig) *int { return &c.Server.RateLimit }},
	{"mail.port", []string{"SMTP_PORT"}, func(c *config.YAMLConfig) *int { return &c.Mail.Port }},
	{"gate.expiry_hours", nil, func(c *config.YAMLConfig) *int { return &c.Gate.ExpiryHours }},
}

// bindEnvAliases binds FOLIOGATE_<SECTION>_<KEY> and the bare deployment
// variable names for every setting.
func bindEnvAliases() {
	for _, s := range stringSettings {
		viper.BindEnv(append([]string{s.key, envName(s.key)}, s.envs...)...)
	}
	for _, s := range intSettings {
		viper.BindEnv(append([]string{s.key, envName(s.key)}, s.envs...)...)
	}
}

func envName(key string) string {
	out := []byte("FOLIOGATE_")
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '.':
			c = '_'
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// loadSettings returns the effective configuration: defaults, then the YAML
// file, then environment variables and flags.
func loadSettings() (*config.YAMLConfig, error) {
	cfg := config.DefaultYAMLConfig()
	if path := viper.ConfigFileUsed(); path != "" {
		if _, err := os.Stat(path); err == nil || cfgFile != "" {
			loaded, err := config.LoadYAMLConfig(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
	}
	applySettings(cfg)

	if cfg.Gate.Store != "sqlite" && cfg.Gate.Store != "file" && cfg.Gate.Store != "memory" {
		return nil, fmt.Errorf("unknown store %q: use sqlite, file or memory", cfg.Gate.Store)
	}
	return cfg, nil
}

// applySettings copies every set viper value over cfg. File values have
// already been parsed; re-applying them is harmless.
func applySettings(cfg *config.YAMLConfig) {
	for _, s := range stringSettings {
		if viper.IsSet(s.key) {
			*s.field(cfg) = os.ExpandEnv(viper.GetString(s.key))
		}
	}
	for _, s := range intSettings {
		if viper.IsSet(s.key) {
			*s.field(cfg) = viper.GetInt(s.key)
		}
	}
}

// maskSecret hides all but the last two characters of a secret.
func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return "****" + s[len(s)-2:]
	}
}
