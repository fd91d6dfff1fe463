// Package subscription owns the single active symbol and serializes changes
// to it. A change always unsubscribes the old symbol before subscribing the
// new one.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dfunklove/tikka/internal/clock"
	"github.com/dfunklove/tikka/internal/connection"
)

// Hint is shown to the user when a symbol is rejected.
const Hint = "Instructions:\n1. Enter text.\n2. Select an option from the drop-down."

// ErrBusy is returned when a change is already in flight.
var ErrBusy = errors.New("subscription change in progress")

// ValidationError reports a rejected symbol. No state was changed.
type ValidationError struct {
	Symbol string
	Reason string
	Hint   string
}

func (e *ValidationError) Error() string {
	if e.Symbol == "" {
		return "invalid symbol: " + e.Reason
	}
	return fmt.Sprintf("invalid symbol %q: %s", e.Symbol, e.Reason)
}

// Sender transmits a command once the connection is ready.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}

// Chart is the presentation the controller resets on every change.
type Chart interface {
	Recreate()
	Redraw()
}

// Clearer empties the sample store.
type Clearer interface {
	Clear()
}

// Config configures the controller.
type Config struct {
	// EmptyTimeout is how long after subscribing the chart says it is
	// waiting for data. A redraw is scheduled when it expires.
	EmptyTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{EmptyTimeout: 60 * time.Second}
}

// Snapshot is a consistent view of the controller state.
type Snapshot struct {
	Symbol       string    `json:"symbol"`
	SubscribedAt time.Time `json:"subscribed_at"`
	Busy         bool      `json:"busy"`
	Changes      int64     `json:"changes"`
}

// Controller manages the active subscription.
type Controller struct {
	cfg    Config
	sender Sender
	store  Clearer
	chart  Chart
	clock  clock.Clock
	logger *slog.Logger

	// changeMu serializes ChangeSubscription; holding it means busy.
	changeMu sync.Mutex

	mu           sync.RWMutex
	current      string
	subscribedAt time.Time
	busy         bool
	changes      int64
	refresh      *time.Timer
}

// NewController creates a controller. chart may be nil.
func NewController(cfg Config, sender Sender, store Clearer, chart Chart, clk clock.Clock, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.EmptyTimeout <= 0 {
		cfg.EmptyTimeout = DefaultConfig().EmptyTimeout
	}

	return &Controller{
		cfg:    cfg,
		sender: sender,
		store:  store,
		chart:  chart,
		clock:  clk,
		logger: logger,
	}
}

// ChangeSubscription switches the active symbol. It returns a
// *ValidationError for an empty or unchanged symbol and ErrBusy while another
// change is in flight; neither mutates state.
//
// If the unsubscribe cannot be sent nothing changes. If the subscribe cannot
// be sent the new symbol stays active and is resubscribed on reconnect.
func (c *Controller) ChangeSubscription(ctx context.Context, symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if err := c.validate(symbol); err != nil {
		return err
	}

	if !c.changeMu.TryLock() {
		return ErrBusy
	}
	defer c.changeMu.Unlock()

	// A change may have completed between validate and TryLock.
	if err := c.validate(symbol); err != nil {
		return err
	}

	c.setBusy(true)
	defer c.setBusy(false)

	old := c.Current()
	logger := c.logger.With("from", old, "to", symbol)

	if old != "" {
		if err := c.sender.Send(ctx, connection.UnsubscribeCommand(old)); err != nil {
			logger.Warn("unsubscribe failed", "error", err)
			return fmt.Errorf("unsubscribe %s: %w", old, err)
		}
	}

	c.store.Clear()
	if c.chart != nil {
		c.chart.Recreate()
	}

	c.mu.Lock()
	c.current = symbol
	c.subscribedAt = c.clock.Now()
	c.changes++
	c.mu.Unlock()

	// The symbol is current from here on, even if the subscribe send fails.
	c.scheduleRefresh()

	if err := c.sender.Send(ctx, connection.SubscribeCommand(symbol)); err != nil {
		logger.Warn("subscribe failed", "error", err)
		return fmt.Errorf("subscribe %s: %w", symbol, err)
	}

	logger.Info("subscription changed")
	return nil
}

// Current returns the active symbol, or "" if none.
func (c *Controller) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// SubscribedAt returns when the active symbol was subscribed.
func (c *Controller) SubscribedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscribedAt
}

// Busy reports whether a change is in flight.
func (c *Controller) Busy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.busy
}

// Snapshot returns the controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Symbol:       c.current,
		SubscribedAt: c.subscribedAt,
		Busy:         c.busy,
		Changes:      c.changes,
	}
}

// Stop cancels a pending chart refresh.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refresh != nil {
		c.refresh.Stop()
		c.refresh = nil
	}
}

func (c *Controller) validate(symbol string) error {
	if symbol == "" {
		return &ValidationError{Symbol: symbol, Reason: "symbol is empty", Hint: Hint}
	}
	if symbol == c.Current() {
		return &ValidationError{Symbol: symbol, Reason: "already subscribed", Hint: Hint}
	}
	return nil
}

func (c *Controller) setBusy(b bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = b
}

// scheduleRefresh redraws the chart once EmptyTimeout has passed so the
// empty-chart message moves on from waiting.
func (c *Controller) scheduleRefresh() {
	if c.chart == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refresh != nil {
		c.refresh.Stop()
	}
	c.refresh = time.AfterFunc(c.cfg.EmptyTimeout, c.chart.Redraw)
}
