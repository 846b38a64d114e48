package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/faucetdb/foliogate/internal/client"
	"github.com/faucetdb/foliogate/internal/config"
	"github.com/faucetdb/foliogate/internal/service"
	"github.com/faucetdb/foliogate/internal/tokenstore"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// FOLIOGATE_DATA_DIR env var, or ~/.foliogate as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("FOLIOGATE_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".foliogate")
}

// openTokenStore opens the client-local storage selected by gate.store.
// The returned close function releases the backend.
func openTokenStore(cfg *config.YAMLConfig, logger *slog.Logger) (*tokenstore.Store, func() error, error) {
	dir := resolveDataDir()
	switch cfg.Gate.Store {
	case "file":
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		kv, err := tokenstore.NewFileKV(filepath.Join(dir, "storage.json"), logger)
		if err != nil {
			return nil, nil, err
		}
		return tokenstore.New(kv, logger), func() error { return nil }, nil
	case "memory":
		logger.Warn("memory store selected: tokens and requests are lost on exit")
		return tokenstore.New(tokenstore.NewMemoryKV(), logger), func() error { return nil }, nil
	default:
		st, err := config.NewStore(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open token store: %w", err)
		}
		return tokenstore.New(st, logger), st.Close, nil
	}
}

// loadCatalog returns the project catalog: the site.catalog file when set,
// otherwise the projects listed in the configuration.
func loadCatalog(cfg *config.YAMLConfig) (*config.Catalog, error) {
	if cfg.Site.Catalog != "" {
		return config.LoadCatalog(cfg.Site.Catalog)
	}
	return config.NewCatalog(cfg.Projects), nil
}

// newLogger builds the process logger from the logging section. dev forces
// debug level.
func newLogger(cfg *config.YAMLConfig, dev bool) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	if dev {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newAPIClient returns a client for the configured HTTP service.
func newAPIClient(cfg *config.YAMLConfig) (*client.Client, error) {
	if cfg.Gate.Server == "" {
		return nil, fmt.Errorf("no server configured: set gate.server or --server")
	}
	timeout, err := config.ParseDuration(cfg.Gate.CheckTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	return client.New(client.Config{BaseURL: cfg.Gate.Server, Timeout: timeout}), nil
}

// app bundles the client-side services most commands need.
type app struct {
	cfg      *config.YAMLConfig
	logger   *slog.Logger
	catalog  *config.Catalog
	access   *service.AccessService
	approval *service.ApprovalService
	api      *client.Client // nil when no server is configured
	close    func() error
}

func openApp() (*app, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, false)

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := openTokenStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		catalog: catalog,
		access:  service.NewAccessService(store, service.SystemClock{}, logger),
		close:   closeStore,
	}

	var notifier service.Notifier
	if api, err := newAPIClient(cfg); err == nil {
		a.api = api
		notifier = api
	}
	a.approval = service.NewApprovalService(a.access, notifier, catalog, logger)
	return a, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
