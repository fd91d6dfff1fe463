// Package render drives the fixed-rate chart refresh: on every tick it drains
// the latest price from the update buffer into the store and redraws.
package render

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dfunklove/tikka/internal/clock"
	"github.com/dfunklove/tikka/internal/router"
	"github.com/dfunklove/tikka/internal/series"
)

// DefaultInterval is the redraw period.
const DefaultInterval = 420 * time.Millisecond

// Source yields the most recent tick, if any.
type Source interface {
	Drain() (router.Tick, bool)
}

// Redrawer redraws the chart.
type Redrawer interface {
	Redraw()
}

// Config configures the loop.
type Config struct {
	Interval time.Duration
}

// Loop moves ticks from a Source into a Store at a fixed rate.
type Loop struct {
	cfg    Config
	source Source
	store  *series.Store
	chart  Redrawer
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	steps    int64
	appended int64
	lastTick time.Time
}

// NewLoop creates a render loop. chart may be nil.
func NewLoop(cfg Config, source Source, store *series.Store, chart Redrawer, clk clock.Clock, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	return &Loop{
		cfg:    cfg,
		source: source,
		store:  store,
		chart:  chart,
		clock:  clk,
		logger: logger,
	}
}

// Run steps every Interval until ctx is cancelled. It returns nil on
// cancellation.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("render loop started", "interval", l.cfg.Interval)

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("render loop stopped")
			return nil
		case <-ticker.C:
			l.Step()
		}
	}
}

// Step performs one iteration and reports whether a sample was appended.
func (l *Loop) Step() bool {
	tick, ok := l.source.Drain()

	l.mu.Lock()
	l.steps++
	if ok {
		l.appended++
		l.lastTick = tick.ReceivedAt
	}
	l.mu.Unlock()

	if !ok {
		return false
	}

	l.store.Append(series.Sample{Time: l.clock.Now(), Price: tick.Price})
	if l.chart != nil {
		l.chart.Redraw()
	}
	return true
}

// Stats returns loop statistics.
func (l *Loop) Stats() LoopStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LoopStats{
		Steps:    l.steps,
		Appended: l.appended,
		LastTick: l.lastTick,
	}
}

// LoopStats contains loop statistics.
type LoopStats struct {
	Steps    int64     `json:"steps"`
	Appended int64     `json:"appended"`
	LastTick time.Time `json:"last_tick"`
}
