package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/awsl-project/ranstat/internal/config"
	"github.com/awsl-project/ranstat/internal/core"
	"github.com/awsl-project/ranstat/internal/events"
	"github.com/awsl-project/ranstat/internal/handler"
	"github.com/awsl-project/ranstat/internal/metrics"
	"github.com/awsl-project/ranstat/internal/service"
	"github.com/awsl-project/ranstat/internal/version"
)

type serveOptions struct {
	addr      string
	dsn       string
	pprof     bool
	accessLog bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = opts.addr
			}
			if cmd.Flags().Changed("dsn") {
				cfg.Database.DSN = opts.dsn
			}
			if cmd.Flags().Changed("pprof") {
				cfg.Debug.PprofEnabled = opts.pprof
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, root.getenv, opts.accessLog)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Override listen address from config (e.g. 127.0.0.1:9880)")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Override database DSN from config")
	cmd.Flags().BoolVar(&opts.pprof, "pprof", false, "Override debug.pprof_enabled from config")
	cmd.Flags().BoolVar(&opts.accessLog, "access-log", true, "Write an access log line per request")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, getenv func(string) string, accessLog bool) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	// 日志同时输出到 stdout 和 <data>/ranstat.log
	logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	defer log.SetOutput(os.Stderr)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	hub := handler.NewWebSocketHub(m)
	sink, err := events.New(cfg.Events, hub)
	if err != nil {
		return fmt.Errorf("connect event sinks: %w", err)
	}

	tracker := core.NewImportTracker()
	importSvc := service.NewImportService(st.nr, st.lte, st.weekly, st.batches, sink, m, tracker)
	querySvc := service.NewQueryService(st.nr, st.lte, st.weekly, st.batches)
	retentionSvc := service.NewRetentionService(st.nr, st.lte, st.weekly, m)

	auth := handler.NewAuthMiddleware(getenv(handler.AdminPasswordEnvKey))
	if auth.IsEnabled() {
		log.Println("[Server] Import API authentication is enabled")
	} else {
		log.Printf("[Server] Import API authentication is disabled (set %s to enable)", handler.AdminPasswordEnvKey)
	}

	var accessOut io.Writer
	if accessLog {
		accessOut = log.Writer()
	}
	router := handler.NewRouter(handler.RouterConfig{
		Importer:    importSvc,
		Lister:      querySvc,
		Query:       querySvc,
		Hub:         hub,
		Auth:        auth,
		Metrics:     m,
		MaxUploadMB: cfg.Server.MaxUploadMB,
		CORSOrigins: cfg.Server.CORSOrigins,
		AccessLog:   accessOut,
	})

	taskCtx, cancelTasks := context.WithCancel(ctx)
	defer cancelTasks()
	core.StartBackgroundTasks(taskCtx, core.BackgroundTaskDeps{
		Retention:    retentionSvc,
		HourlyDays:   cfg.Retention.HourlyDays,
		WeeklyDays:   cfg.Retention.WeeklyDays,
		Interval:     cfg.Retention.Interval(),
		InitialDelay: time.Minute,
	})

	pprofMgr := core.NewPprofManager(core.PprofConfig{
		Enabled:  cfg.Debug.PprofEnabled,
		Port:     cfg.Debug.PprofPort,
		Password: cfg.Debug.PprofPassword,
	})
	if err := pprofMgr.Start(); err != nil {
		log.Printf("[Server] Warning: Failed to start pprof: %v", err)
	}

	server, err := core.NewManagedServer(&core.ServerConfig{
		Addr:                    cfg.Server.Addr,
		DataDir:                 cfg.DataDir,
		Handler:                 router,
		Tracker:                 tracker,
		GracefulShutdownTimeout: cfg.Server.GracefulShutdownTimeout(),
		OnStop: []func(){
			cancelTasks,
			func() {
				if err := sink.Close(); err != nil {
					log.Printf("[Events] Close failed: %v", err)
				}
			},
		},
	})
	if err != nil {
		return err
	}
	// 请求 context 不跟随信号取消，关闭时让进行中的导入跑完
	if err := server.Start(context.WithoutCancel(ctx)); err != nil {
		_ = sink.Close()
		return err
	}

	log.Printf("[Server] Starting ranstat %s on %s", version.Info(), server.Addr())
	log.Printf("[Server] Data directory: %s", cfg.DataDir)
	log.Printf("[Server]   Log file: %s", cfg.LogPath())
	log.Printf("[Server] Upload: POST http://localhost%s/api/imports/{feed}", cfg.Server.Addr)
	log.Printf("[Server] Query:  GET  http://localhost%s/api/kpi/{nr-hourly,lte-hourly,site-weekly,overview}", cfg.Server.Addr)
	log.Printf("[Server] WebSocket: ws://localhost%s/ws", cfg.Server.Addr)

	var serveErr error
	select {
	case <-ctx.Done():
		log.Printf("[Server] Received shutdown signal, initiating graceful shutdown...")
	case serveErr = <-server.Err():
		log.Printf("[Server] Server error: %v", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout()+core.HTTPShutdownTimeout)
	defer cancel()
	if err := pprofMgr.Stop(shutdownCtx); err != nil {
		log.Printf("[Server] Warning: Failed to stop pprof: %v", err)
	}
	if err := server.Stop(shutdownCtx); err != nil {
		log.Printf("[Server] Stop failed: %v", err)
	}
	log.Printf("[Server] Server stopped")
	return serveErr
}
