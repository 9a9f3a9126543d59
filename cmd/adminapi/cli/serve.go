package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shoplist/adminapi/internal/config"
	"github.com/shoplist/adminapi/internal/server"
	"github.com/shoplist/adminapi/internal/service"
	"github.com/shoplist/adminapi/internal/telemetry"
)

const banner = `
     _       _           _               _
    / \   __| |_ __ ___ (_)_ __     __ _| |_ __ (_)
   / _ \ / _' | '_ ' _ \| | '_ \   / _' | '_ \| |
  / ___ \ (_| | | | | | | | | | | | (_| | |_) | |
 /_/   \_\__,_|_| |_| |_|_|_| |_|  \__,_| .__/|_|
                                        |_|
`

func newServeCmd() *cobra.Command {
	var (
		port   int
		host   string
		noUI   bool
		dev    bool
		daemon bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin API server",
		Long: `Start the HTTP server that exposes the admin API, the shopping-list API and the
admin dashboard. Every /api route passes the access gate.`,
		Example: `  adminapi serve
  adminapi serve --port 9000 --dev
  adminapi serve --daemon            # detach and write a PID file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemon {
				return startDaemon(os.Args[1:])
			}
			return runServe(noUI, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Disable the admin pages")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging, CORS *)")
	cmd.Flags().BoolVarP(&daemon, "daemon", "d", false, "Run the server in the background")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

// startDaemon re-executes the binary without --daemon, detached from the
// terminal, with output appended to the log file.
func startDaemon(args []string) error {
	if pid, err := readPID(); err == nil && isProcessRunning(pid) {
		return fmt.Errorf("server already running (PID %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	if err := os.MkdirAll(resolveDataDir(), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, stripDaemonFlag(args)...)
	child.Stdout = logFile
	child.Stderr = logFile
	setSysProcAttr(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	fmt.Printf("Server started in background (PID %d)\n", child.Process.Pid)
	fmt.Printf("  Logs: %s\n", logFilePath())
	fmt.Println("  Stop with: adminapi stop")
	return child.Process.Release()
}

func stripDaemonFlag(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--daemon" || a == "-d" || a == "--daemon=true" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func runServe(noUI, dev bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(os.Stderr, cfg.Logging, dev)

	fmt.Print(banner)
	fmt.Println()

	// 1. Relational store
	store, err := config.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	logger.Info("store initialized", "driver", store.Driver(), "location", store.Location())

	// 2. Admin sessions
	ctx := context.Background()
	ttl := config.Duration(cfg.Session.TTL, 24*time.Hour)
	sessionStore, closeSessions, err := openSessionStore(ctx, cfg.Session)
	if err != nil {
		store.Close()
		return err
	}
	defer closeSessions()
	sessions := service.NewSessions(sessionStore, ttl, nil, logger)
	logger.Info("session store initialized", "backend", cfg.Session.Backend, "ttl", ttl)

	// 3. Access gate
	gate := service.NewGate(sessions, service.NewEvaluator(store, nil), service.GateOptions{
		APIKeyHeader: cfg.Auth.APIKeyHeader,
		CookieName:   cfg.Auth.CookieName,
	})
	password := service.NewAdminPassword(cfg.Auth.AdminPassword, cfg.Auth.AdminPasswordHash)
	if !password.Configured() {
		logger.Warn("no admin password configured - set ADMINAPI_AUTH_ADMIN_PASSWORD or run: adminapi passwd")
	}

	// 4. Metrics
	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.New()
	}

	// 5. HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Server.Host
	srvCfg.Port = cfg.Server.Port
	srvCfg.ShutdownTimeout = config.Duration(cfg.Server.ShutdownTimeout, srvCfg.ShutdownTimeout)
	srvCfg.CORSOrigins = cfg.Server.CORS.Origins
	srvCfg.EnableUI = cfg.Server.EnableUI && !noUI
	srvCfg.MaxBodySize = cfg.Server.MaxBodySize
	srvCfg.RateLimit = cfg.Server.RateLimit
	srvCfg.CookieSecure = cfg.Auth.CookieSecure
	srvCfg.MetricsPath = cfg.Metrics.Path
	srvCfg.FrontendURL = cfg.Monitoring.FrontendURL
	srvCfg.BackendURL = cfg.Monitoring.BackendURL
	srvCfg.PingTimeout = config.Duration(cfg.Monitoring.PingTimeout, srvCfg.PingTimeout)
	srvCfg.SweepInterval = config.Duration(cfg.Session.SweepInterval, srvCfg.SweepInterval)
	if dev {
		srvCfg.CORSOrigins = []string{"*"}
	}

	srv := server.New(srvCfg, store, gate, password, metrics, logger)

	if err := writePID(os.Getpid()); err != nil {
		logger.Warn("failed to write PID file", "path", pidFilePath(), "error", err)
	}
	defer removePID()

	host := srvCfg.Host
	fmt.Printf("→ adminapi %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", host, srvCfg.Port)
	if srvCfg.EnableUI {
		fmt.Printf("→ Dashboard:  http://%s:%d/admin\n", host, srvCfg.Port)
	}
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", host, srvCfg.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", host, srvCfg.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

// openSessionStore returns the configured session backend and a function
// releasing it.
func openSessionStore(ctx context.Context, cfg config.SessionConfig) (service.SessionStore, func(), error) {
	switch cfg.Backend {
	case "redis":
		rs, err := service.NewRedisSessionStore(ctx, service.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init redis session store: %w", err)
		}
		return rs, func() {
			if err := rs.Close(); err != nil {
				slog.Warn("close redis session store", "error", err)
			}
		}, nil
	default:
		return service.NewMemorySessionStore(), func() {}, nil
	}
}
