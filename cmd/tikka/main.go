// tikka streams trade prices for one symbol at a time and serves a live chart.
// Usage: go run ./cmd/tikka --config configs/tikka.yaml [--symbol AAPL]
//
// A .env file in the working directory is loaded before the config, so any
// ${VAR} in the YAML can come from it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dfunklove/tikka/internal/chart"
	"github.com/dfunklove/tikka/internal/clock"
	"github.com/dfunklove/tikka/internal/config"
	"github.com/dfunklove/tikka/internal/connection"
	"github.com/dfunklove/tikka/internal/render"
	"github.com/dfunklove/tikka/internal/router"
	"github.com/dfunklove/tikka/internal/series"
	"github.com/dfunklove/tikka/internal/status"
	"github.com/dfunklove/tikka/internal/subscription"
	"github.com/dfunklove/tikka/internal/symbols"
	"github.com/dfunklove/tikka/internal/version"
	"github.com/dfunklove/tikka/internal/viewer"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults only when empty)")
	initial := flag.String("symbol", "", "symbol to subscribe to at startup")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	logger.Info("starting tikka",
		"version", version.Version,
		"commit", version.Commit,
		"feed_url", cfg.Feed.URL,
		"viewer_addr", cfg.Viewer.Addr,
		"capacity", cfg.Chart.Capacity,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir, err := loadSymbols(ctx, cfg.Symbols, logger)
	if err != nil {
		logger.Error("failed to load symbol directory", "error", err)
		os.Exit(1)
	}

	clk := clock.Real{}
	board := status.NewBoard()
	store := series.NewStore(cfg.Chart.Capacity)
	ticks := router.NewSlot[router.Tick]()
	rtr := router.NewRouter(ticks, board, logger)

	connMgr := connection.NewManager(managerConfig(cfg.Feed), rtr, logger)

	renderer := chart.NewRenderer(chart.Config{
		Width:        cfg.Chart.Width,
		Height:       cfg.Chart.Height,
		EmptyTimeout: cfg.Chart.EmptyTimeout,
	}, store, nil, clk, logger)

	ctrl := subscription.NewController(subscription.Config{
		EmptyTimeout: cfg.Chart.EmptyTimeout,
	}, connMgr, store, renderer, clk, logger)
	defer ctrl.Stop()

	renderer.SetSubscription(ctrl)
	connMgr.SetSubscriptionSource(ctrl)

	loop := render.NewLoop(render.Config{Interval: cfg.Chart.RefreshInterval}, ticks, store, renderer, clk, logger)

	handler := viewer.NewServer(viewer.Deps{
		Subscriptions:   ctrl,
		Chart:           renderer,
		Store:           store,
		Status:          board,
		Connection:      connMgr,
		Router:          rtr,
		Render:          loop,
		Symbols:         dir,
		RefreshInterval: cfg.Chart.RefreshInterval,
		Logger:          logger,
	})
	srv := &http.Server{Addr: cfg.Viewer.Addr, Handler: handler}

	if err := connMgr.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("viewer listening", "addr", cfg.Viewer.Addr, "url", "http://"+cfg.Viewer.Addr+"/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("viewer server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("shutting down...")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("viewer shutdown failed", "error", err)
		}
		return connMgr.Stop(shutdownCtx)
	})

	if *initial != "" {
		g.Go(func() error {
			if err := ctrl.ChangeSubscription(gctx, *initial); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("initial subscription failed", "symbol", *initial, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("tikka stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadAndValidate(path)
}

func managerConfig(feed config.FeedConfig) connection.ManagerConfig {
	cfg := connection.DefaultManagerConfig()
	cfg.URL = feed.URL
	cfg.ReconnectDelay = feed.ReconnectDelay
	cfg.PollInterval = feed.PollInterval
	cfg.Client.HandshakeTimeout = feed.HandshakeTimeout
	cfg.Client.WriteTimeout = feed.WriteTimeout
	cfg.Client.PingTimeout = feed.PingTimeout
	cfg.Client.HeartbeatInterval = feed.HeartbeatInterval
	cfg.Client.BufferSize = feed.BufferSize
	return cfg
}

// loadSymbols returns nil when no directory is configured.
func loadSymbols(ctx context.Context, cfg config.SymbolsConfig, logger *slog.Logger) (*symbols.Directory, error) {
	var (
		dir *symbols.Directory
		err error
	)
	switch {
	case cfg.Path != "":
		dir, err = symbols.Load(cfg.Path)
	case cfg.URL != "":
		dir, err = symbols.NewClient(symbols.WithLogger(logger)).Fetch(ctx, cfg.URL)
	default:
		logger.Info("no symbol directory configured, symbols are not checked")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	logger.Info("symbol directory loaded", "entries", dir.Len())
	return dir, nil
}

func setupLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    25,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		})
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, nil
}
