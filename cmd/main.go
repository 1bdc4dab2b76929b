package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/ponytojas/go-parking-monitor/config"
	"github.com/ponytojas/go-parking-monitor/internal/api"
	"github.com/ponytojas/go-parking-monitor/internal/database"
	"github.com/ponytojas/go-parking-monitor/internal/display"
	"github.com/ponytojas/go-parking-monitor/internal/mqtt"
	"github.com/ponytojas/go-parking-monitor/internal/occupancy"
)

const (
	connectTimeout  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
	effectBuffer    = 64
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, logFile, logLevel string
	var headless bool

	flagSet := pflag.NewFlagSet("parking-monitor", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", ".", "config file or directory containing config.yaml")
	flagSet.BoolVar(&headless, "headless", false, "run without a terminal UI and serve indicators over HTTP")
	flagSet.StringVar(&logFile, "log-file", "", "write logs to this file (default from config)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default from config)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := config.LoadConfig(configPath, bootLogger)
	if err != nil {
		return err
	}
	if flagSet.Changed("headless") {
		cfg.Display.Headless = headless
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []occupancy.Option{
		occupancy.WithLogger(logger.With("component", "monitor")),
		occupancy.WithPath(cfg.Store.Path),
	}

	if cfg.Diagnostics.Enabled {
		db, err := database.NewTimescaleDB(ctx, cfg, logger.With("component", "diagnostics"))
		if err != nil {
			return err
		}
		defer db.Close(context.Background())
		if err := db.InitializeTable(ctx); err != nil {
			return fmt.Errorf("failed to initialize diagnostics table: %w", err)
		}
		sink := database.NewSink(db, cfg.Diagnostics.BufferSize, logger.With("component", "diagnostics"))
		defer sink.Close()
		opts = append(opts, occupancy.WithDiagnosticSink(sink))
	}

	store := mqtt.NewClient(cfg, logger.With("component", "mqtt"))
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := store.Connect(connectCtx); err != nil {
		return err
	}
	defer store.Disconnect()

	if cfg.Display.Headless {
		return runHeadless(ctx, cfg, store, logger, opts)
	}
	return runTUI(ctx, cfg, store, logger, opts)
}

func runTUI(ctx context.Context, cfg *config.Config, store occupancy.Store, logger *slog.Logger, opts []occupancy.Option) error {
	model := display.NewModel(cfg.Zones, cfg.Display.NotificationTTL)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	screen := display.NewTUIScreen(program)

	monitor, err := occupancy.New(store, screen, cfg.Zones, opts...)
	if err != nil {
		return err
	}
	defer closeMonitor(monitor, logger)

	// The program must be running before effects can be delivered, so the
	// subscription is opened in the background.
	go startMonitor(ctx, monitor, screen, logger)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("screen failed: %w", err)
	}
	logger.Info("screen closed")
	return nil
}

func runHeadless(ctx context.Context, cfg *config.Config, store occupancy.Store, logger *slog.Logger, opts []occupancy.Option) error {
	screen := display.NewHeadlessScreen(cfg.Zones, effectBuffer, logger.With("component", "screen"))
	defer screen.Close()

	monitor, err := occupancy.New(store, screen, cfg.Zones, opts...)
	if err != nil {
		return err
	}
	defer closeMonitor(monitor, logger)

	startMonitor(ctx, monitor, screen, logger)

	if cfg.HTTP.Addr != "" {
		server := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.NewRouter(screen),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("serving indicators", "addr", cfg.HTTP.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http server shutdown", "error", err)
			}
		}()
	}

	logger.Info("monitor is running", "path", cfg.Store.Path, "topic", cfg.Topic(cfg.Store.Path))
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// startMonitor opens the subscription. A failure is shown like any other
// read failure.
func startMonitor(ctx context.Context, monitor *occupancy.Monitor, screen occupancy.Screen, logger *slog.Logger) {
	if err := monitor.Start(ctx); err != nil {
		if errors.Is(err, occupancy.ErrClosed) {
			return
		}
		logger.Error("failed to start monitor", "error", err)
		screen.Post(occupancy.Notification{Text: occupancy.MessageReadFailed, Kind: occupancy.NotifyError})
	}
}

func closeMonitor(monitor *occupancy.Monitor, logger *slog.Logger) {
	if err := monitor.Close(); err != nil {
		logger.Warn("failed to close monitor", "error", err)
	}
}

// newLogger builds the application logger. A log file of "-" means stderr,
// which the terminal UI owns, so in that mode logs are discarded instead.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case cfg.Log.File != "" && cfg.Log.File != "-":
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closeFn = func() { f.Close() }
	case !cfg.Display.Headless:
		out = io.Discard
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler), closeFn, nil
}
