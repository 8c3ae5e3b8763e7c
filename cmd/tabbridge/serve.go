package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/standardbeagle/tabbridge/internal/bridge"
	"github.com/standardbeagle/tabbridge/internal/buffers"
	"github.com/standardbeagle/tabbridge/internal/config"
	"github.com/standardbeagle/tabbridge/internal/discovery"
	mcpserver "github.com/standardbeagle/tabbridge/internal/mcp"
	"github.com/standardbeagle/tabbridge/internal/screenshot"
	"github.com/standardbeagle/tabbridge/internal/server"
	"github.com/standardbeagle/tabbridge/internal/tools"
	"github.com/standardbeagle/tabbridge/pkg/events"
	"github.com/standardbeagle/tabbridge/pkg/ports"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		mcpStdio   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, port, mcpStdio)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to .tabbridge.toml")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (overrides config)")
	cmd.Flags().BoolVar(&mcpStdio, "mcp", false, "Also serve MCP over stdio")
	return cmd
}

func runServe(configPath string, portOverride int, mcpStdio bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if portOverride > 0 {
		cfg.Server.Port = portOverride
	}

	logger := newLogger(cfg.Logging.Level, mcpStdio)

	listenPort, err := ports.FindAvailablePort(cfg.Server.Port)
	if err != nil {
		return fmt.Errorf("no available port near %d: %w", cfg.Server.Port, err)
	}
	if listenPort != cfg.Server.Port {
		logger.Warn("configured port busy, using fallback", "configured", cfg.Server.Port, "using", listenPort)
	}

	bus := events.NewEventBus()
	defer bus.Shutdown()

	table := bridge.NewTable(logger)
	conn := bridge.NewManager(table, bus, logger)
	agg := buffers.NewAggregator(cfg.Buffers.Capacity)
	conn.OnPush(agg.HandlePush)

	store, err := screenshot.NewStore(cfg.Screenshots.Dir, cfg.Screenshots.Prefix)
	if err != nil {
		return err
	}

	toolCfg := tools.Config{
		DefaultTimeout:   time.Duration(cfg.Bridge.DefaultTimeoutMs) * time.Millisecond,
		PingTimeout:      time.Duration(cfg.Bridge.PingTimeoutMs) * time.Millisecond,
		MaxContentLength: cfg.Buffers.MaxContentLength,
	}
	registry := tools.NewRegistry(bus, logger)
	if err := tools.RegisterDefaults(registry, conn, agg, store, toolCfg); err != nil {
		return err
	}

	srv := server.New(cfg.Server.Host, listenPort, conn, registry, agg, logger)

	instanceID := uuid.NewString()[:8]
	cwd, _ := os.Getwd()
	if _, err := discovery.Register(discovery.Instance{
		ID:        instanceID,
		Port:      listenPort,
		PID:       os.Getpid(),
		StartedAt: time.Now(),
		Dir:       cwd,
	}); err != nil {
		logger.Warn("instance registration failed", "error", err)
	}
	defer func() {
		if err := discovery.Unregister(instanceID); err != nil {
			logger.Warn("instance cleanup failed", "error", err)
		}
	}()

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Start()
	}()

	if mcpStdio {
		mcpSrv := mcpserver.NewServer(Version, registry, conn)
		go func() {
			errCh <- mcpserver.ServeStdio(mcpSrv)
		}()
		logger.Info("mcp stdio server started")
	}

	logger.Info("tabbridge running",
		"port", listenPort,
		"instance", instanceID,
		"screenshots", store.Dir())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// newLogger builds the process logger. With MCP on stdio, stdout
// belongs to the protocol, so logs always go to stderr.
func newLogger(level string, _ bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}
