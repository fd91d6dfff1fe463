package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dfunklove/tikka/internal/clock"
)

// Manager keeps a single feed connection alive and gates outbound traffic on
// its readiness.
type Manager interface {
	// Start binds the manager's lifetime to ctx and opens the connection.
	Start(ctx context.Context) error

	// Stop cancels reconnects and closes the connection.
	Stop(ctx context.Context) error

	// EnsureOpen starts a connection attempt unless one is open or in progress.
	EnsureOpen()

	// Send blocks until the connection is open, then transmits payload.
	// It returns only on success, ctx cancellation, or manager shutdown.
	Send(ctx context.Context, payload []byte) error

	// CloseConnection closes the live connection. The reconnect loop
	// re-establishes it afterwards.
	CloseConnection() error

	// SetSubscriptionSource sets where resubscribe-on-reconnect reads the
	// current symbol from. Must be called before Start.
	SetSubscriptionSource(src SubscriptionSource)

	// State returns the current connection state.
	State() State

	// Stats returns current connection statistics.
	Stats() ManagerStats
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State        State     `json:"state"`
	Attempt      string    `json:"attempt,omitempty"`
	Connects     int64     `json:"connects"`
	DialFailures int64     `json:"dial_failures"`
	Disconnects  int64     `json:"disconnects"`
	Sends        int64     `json:"sends"`
	Resubscribes int64     `json:"resubscribes"`
	LastChange   time.Time `json:"last_change"`
}

// manager implements the Manager interface.
type manager struct {
	cfg     ManagerConfig
	handler MessageHandler
	logger  *slog.Logger

	newClient func(cfg ClientConfig, logger *slog.Logger) Client
	observe   func(State)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// sendMu orders writes on the live client. connect holds it from the
	// OPEN transition until the resubscribe is written, so queued Sends
	// always follow the resubscribe. Acquired before mu.
	sendMu sync.Mutex

	mu               sync.Mutex
	state            State
	client           Client
	attempt          string
	changed          chan struct{} // closed and replaced on every transition
	lastChange       time.Time
	reconnectPending bool
	stopped          bool
	subs             SubscriptionSource

	// Stats
	connects     int64
	dialFailures int64
	disconnects  int64
	sends        int64
	resubscribes int64
}

// NewManager creates a new Connection Manager that forwards inbound messages
// to handler.
func NewManager(cfg ManagerConfig, handler MessageHandler, logger *slog.Logger) Manager {
	return newManager(cfg, handler, logger)
}

func newManager(cfg ManagerConfig, handler MessageHandler, logger *slog.Logger) *manager {
	if logger == nil {
		logger = slog.Default()
	}
	if handler == nil {
		handler = MessageHandlerFunc(func(RawMessage) {})
	}
	defaults := DefaultManagerConfig()
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaults.ReconnectDelay
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	cfg.Client.URL = cfg.URL

	return &manager{
		cfg:       cfg,
		handler:   handler,
		logger:    logger,
		newClient: NewClient,
		state:     StateClosed,
		changed:   make(chan struct{}),
	}
}

// SetSubscriptionSource sets the resubscribe source.
func (m *manager) SetSubscriptionSource(src SubscriptionSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = src
}

// Start begins the connection manager.
func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	m.logger.Info("connection manager started",
		"url", m.cfg.URL,
		"reconnect_delay", m.cfg.ReconnectDelay,
	)

	m.EnsureOpen()
	return nil
}

// Stop gracefully shuts down.
func (m *manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping connection manager")

	m.mu.Lock()
	m.stopped = true
	cl := m.client
	m.client = nil
	m.setStateLocked(StateClosed)
	m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	if cl != nil {
		cl.Close()
	}

	// Wait for goroutines with timeout
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, forcing close")
	}

	m.logger.Info("connection manager stopped")
	return nil
}

// EnsureOpen starts a connection attempt if needed.
func (m *manager) EnsureOpen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureOpenLocked()
}

// ensureOpenLocked must be called with lock held.
func (m *manager) ensureOpenLocked() {
	if m.stopped || m.ctx == nil || m.ctx.Err() != nil {
		return
	}
	if m.client != nil && (m.state == StateOpen || m.state == StateConnecting) {
		return
	}

	// At most one live client: retire whatever is left.
	if old := m.client; old != nil {
		go old.Close()
	}

	attempt := uuid.NewString()
	cl := m.newClient(m.cfg.Client, m.logger.With("attempt", attempt))
	m.client = cl
	m.attempt = attempt
	m.setStateLocked(StateConnecting)

	m.wg.Add(1)
	go m.connect(cl, attempt)
}

// connect dials cl and, on success, starts its read loop and resubscribes.
func (m *manager) connect(cl Client, attempt string) {
	defer m.wg.Done()

	logger := m.logger.With("attempt", attempt)
	logger.Debug("connecting", "url", m.cfg.URL)

	err := cl.Connect(m.ctx)

	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	m.mu.Lock()
	if m.stopped || m.client != cl {
		// Superseded while dialing.
		m.mu.Unlock()
		cl.Close()
		return
	}

	if err != nil {
		m.dialFailures++
		m.setStateLocked(StateClosed)
		m.scheduleReconnectLocked()
		m.mu.Unlock()

		logger.Warn("connection failed", "error", err, "retry_in", m.cfg.ReconnectDelay)
		return
	}

	m.connects++
	m.setStateLocked(StateOpen)
	subs := m.subs
	m.wg.Add(1)
	go m.readLoop(cl, attempt)
	m.mu.Unlock()

	logger.Info("connected", "url", m.cfg.URL)

	if subs == nil {
		return
	}
	if symbol := subs.Current(); symbol != "" {
		if err := cl.Send(SubscribeCommand(symbol)); err != nil {
			logger.Warn("resubscribe failed", "symbol", symbol, "error", err)
			return
		}
		m.mu.Lock()
		m.resubscribes++
		m.mu.Unlock()
		logger.Info("resubscribed", "symbol", symbol)
	}
}

// readLoop forwards messages from cl until it fails or is closed.
func (m *manager) readLoop(cl Client, attempt string) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return

		case err := <-cl.Errors():
			m.disconnected(cl, err)
			return

		case <-cl.Done():
			m.disconnected(cl, ErrNotConnected)
			return

		case msg := <-cl.Messages():
			m.handler.HandleMessage(RawMessage{
				Data:       msg.Data,
				Attempt:    attempt,
				ReceivedAt: msg.ReceivedAt,
			})
		}
	}
}

// disconnected handles the loss of cl. Events from superseded clients are
// ignored.
func (m *manager) disconnected(cl Client, cause error) {
	cl.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped || m.client != cl || m.state == StateClosed {
		return
	}

	m.disconnects++
	m.setStateLocked(StateClosed)
	m.scheduleReconnectLocked()

	m.logger.Warn("connection lost",
		"attempt", m.attempt,
		"error", cause,
		"retry_in", m.cfg.ReconnectDelay,
	)
}

// scheduleReconnectLocked arranges one EnsureOpen after ReconnectDelay.
// Must be called with lock held.
func (m *manager) scheduleReconnectLocked() {
	if m.stopped || m.reconnectPending || m.ctx == nil {
		return
	}
	m.reconnectPending = true

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		err := clock.Sleep(m.ctx, m.cfg.ReconnectDelay)

		m.mu.Lock()
		defer m.mu.Unlock()
		m.reconnectPending = false
		if err != nil {
			return
		}
		m.ensureOpenLocked()
	}()
}

// Send waits for an open connection and transmits payload.
func (m *manager) Send(ctx context.Context, payload []byte) error {
	for {
		m.mu.Lock()
		if m.stopped || (m.ctx != nil && m.ctx.Err() != nil) {
			m.mu.Unlock()
			return ErrStopped
		}
		if m.ctx == nil {
			m.mu.Unlock()
			return ErrNotConnected
		}
		state := m.state
		cl := m.client
		changed := m.changed
		mctx := m.ctx
		m.mu.Unlock()

		switch state {
		case StateOpen:
			m.sendMu.Lock()
			err := cl.Send(payload)
			m.sendMu.Unlock()
			if err != nil {
				// Not transmitted; treat as a lost connection and wait again.
				m.logger.Warn("send failed", "error", err)
				m.disconnected(cl, err)
				continue
			}
			m.mu.Lock()
			m.sends++
			m.mu.Unlock()
			return nil

		case StateConnecting, StateClosing:
			timer := time.NewTimer(m.cfg.PollInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-mctx.Done():
				timer.Stop()
				return ErrStopped
			case <-changed:
			case <-timer.C:
			}
			timer.Stop()

		case StateClosed:
			if err := clock.Sleep(ctx, m.cfg.ReconnectDelay); err != nil {
				return err
			}
			m.EnsureOpen()
		}
	}
}

// CloseConnection closes the live connection: OPEN -> CLOSING -> CLOSED.
func (m *manager) CloseConnection() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	if m.state != StateOpen || m.client == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	cl := m.client
	m.setStateLocked(StateClosing)
	m.mu.Unlock()

	m.logger.Info("closing connection")
	err := cl.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped && m.client == cl && m.state == StateClosing {
		m.disconnects++
		m.setStateLocked(StateClosed)
		m.scheduleReconnectLocked()
	}
	return err
}

// State returns the current connection state.
func (m *manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return ManagerStats{
		State:        m.state,
		Attempt:      m.attempt,
		Connects:     m.connects,
		DialFailures: m.dialFailures,
		Disconnects:  m.disconnects,
		Sends:        m.sends,
		Resubscribes: m.resubscribes,
		LastChange:   m.lastChange,
	}
}

// setStateLocked records a transition and wakes waiters. Must be called with
// lock held.
func (m *manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.logger.Debug("state change", "from", m.state, "to", s)
	m.state = s
	m.lastChange = time.Now()
	close(m.changed)
	m.changed = make(chan struct{})
	if m.observe != nil {
		m.observe(s)
	}
}
