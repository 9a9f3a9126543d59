package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/shoplist/adminapi/internal/config"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// ADMINAPI_DATA_DIR env var, or ~/.adminapi as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("ADMINAPI_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".adminapi")
}

// overridable lists the scalar settings that flags and ADMINAPI_*
// environment variables may set on top of the YAML file.
var overridable = []string{
	"server.host",
	"server.port",
	"server.rate_limit",
	"auth.admin_password",
	"auth.admin_password_hash",
	"auth.cookie_secure",
	"session.backend",
	"session.redis_addr",
	"session.redis_password",
	"database.driver",
	"database.dsn",
	"monitoring.frontend_url",
	"monitoring.backend_url",
	"logging.level",
	"logging.format",
}

// loadConfig reads the YAML file viper resolved (if any) and applies
// overrides from bound flags and the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(viper.ConfigFileUsed())
	if err != nil {
		return nil, err
	}
	for _, key := range overridable {
		if !viper.IsSet(key) {
			continue
		}
		applyOverride(cfg, key)
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN == "" {
		cfg.Database.DataDir = resolveDataDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverride(cfg *config.Config, key string) {
	switch key {
	case "server.host":
		cfg.Server.Host = viper.GetString(key)
	case "server.port":
		cfg.Server.Port = viper.GetInt(key)
	case "server.rate_limit":
		cfg.Server.RateLimit = viper.GetInt(key)
	case "auth.admin_password":
		cfg.Auth.AdminPassword = viper.GetString(key)
	case "auth.admin_password_hash":
		cfg.Auth.AdminPasswordHash = viper.GetString(key)
	case "auth.cookie_secure":
		cfg.Auth.CookieSecure = viper.GetBool(key)
	case "session.backend":
		cfg.Session.Backend = viper.GetString(key)
	case "session.redis_addr":
		cfg.Session.RedisAddr = viper.GetString(key)
	case "session.redis_password":
		cfg.Session.RedisPassword = viper.GetString(key)
	case "database.driver":
		cfg.Database.Driver = viper.GetString(key)
	case "database.dsn":
		cfg.Database.DSN = viper.GetString(key)
	case "monitoring.frontend_url":
		cfg.Monitoring.FrontendURL = viper.GetString(key)
	case "monitoring.backend_url":
		cfg.Monitoring.BackendURL = viper.GetString(key)
	case "logging.level":
		cfg.Logging.Level = viper.GetString(key)
	case "logging.format":
		cfg.Logging.Format = viper.GetString(key)
	}
}

// openConfigStore loads the configuration and opens the store it names.
func openConfigStore() (*config.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return config.Open(cfg.Database)
}

// newLogger builds the process logger from the logging section. dev forces
// debug level.
func newLogger(w io.Writer, cfg config.LoggingConfig, dev bool) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if dev {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// parseKeyID parses a positional API key id argument.
func parseKeyID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid key id %q", arg)
	}
	return id, nil
}

// --- PID file management ---

func pidFilePath() string {
	return filepath.Join(resolveDataDir(), "adminapi.pid")
}

func writePID(pid int) error {
	dir := resolveDataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0644)
}

func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePID() {
	os.Remove(pidFilePath())
}

func logFilePath() string {
	return filepath.Join(resolveDataDir(), "adminapi.log")
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
