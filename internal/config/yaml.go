package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level adminapi configuration. It is built once at
// process start and passed by reference to everything that needs it.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Session    SessionConfig    `yaml:"session"`
	Database   DatabaseConfig   `yaml:"database"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	MCP        MCPConfig        `yaml:"mcp"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host"`
	Port            int        `yaml:"port"`
	MaxBodySize     int64      `yaml:"max_body_size"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	RateLimit       int        `yaml:"rate_limit"` // requests per minute per peer IP, 0 disables
	EnableUI        bool       `yaml:"enable_ui"`
	CORS            CORSConfig `yaml:"cors"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// AuthConfig controls admin login and API key handling. Exactly one of
// AdminPassword and AdminPasswordHash should be set; the hash wins.
type AuthConfig struct {
	AdminPassword     string `yaml:"admin_password"`
	AdminPasswordHash string `yaml:"admin_password_hash"` // bcrypt
	APIKeyHeader      string `yaml:"api_key_header"`
	CookieName        string `yaml:"cookie_name"`
	CookieSecure      bool   `yaml:"cookie_secure"`
}

// SessionConfig controls the admin session store.
type SessionConfig struct {
	Backend       string `yaml:"backend"` // memory or redis
	TTL           string `yaml:"ttl"`
	SweepInterval string `yaml:"sweep_interval"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver          string `yaml:"driver"` // sqlite, postgres or mysql
	DSN             string `yaml:"dsn"`
	DataDir         string `yaml:"data_dir"` // sqlite only, used when DSN is empty
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

// MonitoringConfig configures the ping and status probes.
type MonitoringConfig struct {
	FrontendURL string `yaml:"frontend_url"`
	BackendURL  string `yaml:"backend_url"`
	PingTimeout string `yaml:"ping_timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MCPConfig controls the MCP (Model Context Protocol) server.
type MCPConfig struct {
	Transport string `yaml:"transport"`
	Port      int    `yaml:"port"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
// Environment variables referenced as ${VAR_NAME} are expanded before
// parsing. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a Config pre-filled with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxBodySize:     1 << 20,
			ShutdownTimeout: "30s",
			RateLimit:       0,
			EnableUI:        true,
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
		},
		Auth: AuthConfig{
			APIKeyHeader: "X-API-Key",
			CookieName:   "admin_session",
		},
		Session: SessionConfig{
			Backend:       "memory",
			TTL:           "24h",
			SweepInterval: "10m",
			RedisAddr:     "localhost:6379",
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: "5m",
		},
		Monitoring: MonitoringConfig{
			FrontendURL: "http://localhost:3000",
			BackendURL:  "http://localhost:4000",
			PingTimeout: "3s",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		MCP: MCPConfig{
			Transport: "stdio",
			Port:      3001,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the fields that cannot be defaulted at use time.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"server.shutdown_timeout":    c.Server.ShutdownTimeout,
		"session.ttl":                c.Session.TTL,
		"session.sweep_interval":     c.Session.SweepInterval,
		"database.conn_max_lifetime": c.Database.ConnMaxLifetime,
		"monitoring.ping_timeout":    c.Monitoring.PingTimeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	switch c.Session.Backend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("invalid session.backend %q: use memory or redis", c.Session.Backend)
	}
	return nil
}

// Duration parses a duration string, returning fallback when s is empty or
// malformed. Validate has already rejected malformed values for loaded
// configs.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
