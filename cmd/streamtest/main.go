// streamtest connects to the price feed, subscribes to one symbol and prints
// every parsed trade to the console.
// Usage: go run ./cmd/streamtest --config configs/tikka.yaml --symbol AAPL
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dfunklove/tikka/internal/config"
	"github.com/dfunklove/tikka/internal/connection"
	"github.com/dfunklove/tikka/internal/router"
	"github.com/dfunklove/tikka/internal/status"
)

type fixedSymbol string

func (s fixedSymbol) Current() string { return string(s) }

func main() {
	configPath := flag.String("config", "", "path to config file (defaults only when empty)")
	symbol := flag.String("symbol", "AAPL", "symbol to subscribe to")
	verbose := flag.Bool("verbose", false, "print full tick JSON")
	flag.Parse()

	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadAndValidate(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	board := status.NewBoard()
	ticks := router.NewSlot[router.Tick]()
	rtr := router.NewRouter(ticks, board, logger)

	connCfg := connection.DefaultManagerConfig()
	connCfg.URL = cfg.Feed.URL
	connCfg.ReconnectDelay = cfg.Feed.ReconnectDelay
	connCfg.PollInterval = cfg.Feed.PollInterval

	connMgr := connection.NewManager(connCfg, rtr, logger)
	connMgr.SetSubscriptionSource(fixedSymbol(*symbol))

	logger.Info("starting connection manager", "url", connCfg.URL)
	if err := connMgr.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}

	// The manager resubscribes on every open, which covers the first one too.
	go printTicks(ctx, ticks, board, *verbose)

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				routerStats := rtr.Stats()
				connStats := connMgr.Stats()
				logger.Info("stats",
					"conn_state", connStats.State,
					"connects", connStats.Connects,
					"dial_failures", connStats.DialFailures,
					"router_received", routerStats.MessagesReceived,
					"router_routed", routerStats.MessagesRouted,
					"parse_errors", routerStats.ParseErrors,
					"ticks_missed", routerStats.Buffer.Overwritten,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "symbol", *symbol)

	// Wait for shutdown
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	connMgr.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}

func printTicks(ctx context.Context, ticks *router.Slot[router.Tick], board *status.Board, verbose bool) {
	var lastStatus string
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if msg := board.Get(); msg.Text != lastStatus {
				lastStatus = msg.Text
				if msg.Text != "" {
					fmt.Printf("[STATUS] %s\n", msg.Text)
				}
			}

			tick, ok := ticks.Drain()
			if !ok {
				time.Sleep(10 * time.Millisecond)
				continue
			}

			if verbose {
				data, _ := json.MarshalIndent(tick, "", "  ")
				fmt.Printf("[TRADE] %s\n", data)
			} else {
				fmt.Printf("[TRADE] symbol=%s price=%v received=%s\n",
					tick.Symbol, tick.Price, tick.ReceivedAt.Format(time.RFC3339Nano))
			}
		}
	}
}
