package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faucetdb/foliogate/internal/config"
	"github.com/faucetdb/foliogate/internal/handler"
	"github.com/faucetdb/foliogate/internal/mailer"
	"github.com/faucetdb/foliogate/internal/model"
	"github.com/faucetdb/foliogate/internal/server"
	"github.com/faucetdb/foliogate/internal/service"
)

const banner = `
  __       _ _             _
 / _| ___ | (_) ___   __ _| |_ ___
| |_ / _ \| | |/ _ \ / _' | __/ _ \
|  _| (_) | | | (_) | (_| | ||  __/
|_|  \___/|_|_|\___/ \__, |\__\___|
                     |___/
`

func newServeCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the foliogate HTTP service",
		Long: `Start the HTTP service that validates passwords and sends the access request
and approval emails. The service keeps no tokens or requests of its own.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), dev)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().String("log-file", "", "Write logs to a rotating file instead of stderr")
	cmd.Flags().BoolVar(&dev, "dev", false, "Development mode: debug logging, emails logged instead of sent")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("logging.file", cmd.Flags().Lookup("log-file"))

	return cmd
}

func runServe(ctx context.Context, dev bool) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cfg, dev)

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	srvCfg, err := serverConfig(cfg)
	if err != nil {
		return err
	}
	sender, err := newSender(cfg, dev, logger)
	if err != nil {
		return err
	}

	auth := service.NewAuthService(cfg.Auth.AdminPassword, cfg.Auth.ProjectPassword)
	for _, kind := range []string{model.PasswordTypeProject, model.PasswordTypeAdmin} {
		if !auth.Configured(kind) {
			logger.Warn("password not configured; every check of this type fails", "type", kind)
		}
	}
	if cfg.Mail.AdminEmail == "" {
		logger.Warn("mail.admin_email is not set; /api/request-access will fail")
	}

	access := handler.NewAccessHandler(auth, sender, newComposer(cfg), catalog, service.SystemClock{}, logger)
	srv := server.New(srvCfg, access, logger)
	srv.AddCheck("admin_email", func(context.Context) error {
		if cfg.Mail.AdminEmail == "" {
			return errors.New("not configured")
		}
		return nil
	})
	srv.AddCheck("project_password", func(context.Context) error {
		if !auth.Configured(model.PasswordTypeProject) {
			return errors.New("not configured")
		}
		return nil
	})

	fmt.Print(banner)
	fmt.Println()
	fmt.Printf("→ Foliogate %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Projects:   %d catalogued\n", len(catalog.List()))
	if dev {
		fmt.Println("→ Dev mode:   emails are logged, not sent")
	}
	fmt.Println()

	return srv.ListenAndServe(ctx)
}

func serverConfig(cfg *config.YAMLConfig) (server.Config, error) {
	maxBody, err := config.ParseByteSize(cfg.Server.MaxBodySize)
	if err != nil {
		return server.Config{}, fmt.Errorf("server.max_body_size: %w", err)
	}
	shutdown, err := config.ParseDuration(cfg.Server.ShutdownTimeout, 30*time.Second)
	if err != nil {
		return server.Config{}, fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	return server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: shutdown,
		CORSOrigins:     cfg.Server.CORS.Origins,
		MaxBodySize:     maxBody,
		RateLimit:       cfg.Server.RateLimit,
		Version:         versionString(),
	}, nil
}

// newSender selects the mail transport. Dev mode and mail.driver "log" only
// log messages.
func newSender(cfg *config.YAMLConfig, dev bool, logger *slog.Logger) (mailer.Sender, error) {
	timeout, err := config.ParseDuration(cfg.Mail.Timeout, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("mail.timeout: %w", err)
	}
	if dev || cfg.Mail.Driver == "log" {
		return mailer.LogSender{Logger: logger}, nil
	}
	if cfg.Mail.Driver != "smtp" && cfg.Mail.Driver != "" {
		return nil, fmt.Errorf("unknown mail driver %q: use smtp or log", cfg.Mail.Driver)
	}
	smtp := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}, logger)
	return mailer.WithTimeout(smtp, timeout), nil
}

func newComposer(cfg *config.YAMLConfig) mailer.Composer {
	return mailer.Composer{
		From:       cfg.Mail.From,
		AdminEmail: cfg.Mail.AdminEmail,
		SiteURL:    cfg.Site.URL,
	}
}
