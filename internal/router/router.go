package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dfunklove/tikka/internal/connection"
)

var (
	errEmptyTrade = errors.New("trade message has no entries")
)

// Router parses raw feed messages and routes them to the update buffer and the
// status area. It implements connection.MessageHandler.
type Router interface {
	// HandleMessage parses and routes a single message.
	HandleMessage(raw connection.RawMessage)

	// Stats returns current router statistics.
	Stats() RouterStats
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64     `json:"messages_received"`
	MessagesRouted   int64     `json:"messages_routed"`
	ParseErrors      int64     `json:"parse_errors"`
	UnknownMessages  int64     `json:"unknown_messages"`
	ProtocolErrors   int64     `json:"protocol_errors"`
	Buffer           SlotStats `json:"buffer"`
}

// router is the internal implementation.
type router struct {
	logger *slog.Logger

	ticks  *Slot[Tick]
	status StatusSink

	mu              sync.RWMutex
	received        int64
	routed          int64
	parseErrors     int64
	unknownMessages int64
	protocolErrors  int64
}

// NewRouter creates a Router that deposits trade ticks into ticks and reports
// feed errors to status. status may be nil.
func NewRouter(ticks *Slot[Tick], status StatusSink, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &router{
		logger: logger,
		ticks:  ticks,
		status: status,
	}
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RouterStats{
		MessagesReceived: r.received,
		MessagesRouted:   r.routed,
		ParseErrors:      r.parseErrors,
		UnknownMessages:  r.unknownMessages,
		ProtocolErrors:   r.protocolErrors,
		Buffer:           r.ticks.Stats(),
	}
}

// HandleMessage parses and routes a single message.
func (r *router) HandleMessage(raw connection.RawMessage) {
	r.mu.Lock()
	r.received++
	r.mu.Unlock()

	var env messageEnvelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		r.logger.Warn("failed to parse message envelope", "error", err)
		r.countParseError()
		return
	}

	switch env.Type {
	case TypeTrade:
		tick, err := r.parseTrade(env.Data, raw)
		if err != nil {
			r.logger.Warn("failed to parse trade", "error", err)
			r.countParseError()
			return
		}
		r.ticks.Deposit(tick)

	case TypeError:
		var msg string
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			r.logger.Warn("failed to parse error message", "error", err)
			r.countParseError()
			return
		}
		r.logger.Warn("feed reported error", "message", msg)
		r.mu.Lock()
		r.protocolErrors++
		r.mu.Unlock()
		if r.status != nil {
			r.status.SetError(msg)
		}

	default:
		r.logger.Debug("unknown message type", "type", env.Type)
		r.mu.Lock()
		r.unknownMessages++
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	r.routed++
	r.mu.Unlock()
}

// parseTrade converts the first entry of a trade message into a Tick.
func (r *router) parseTrade(data json.RawMessage, raw connection.RawMessage) (Tick, error) {
	var trades []tradeData
	if err := json.Unmarshal(data, &trades); err != nil {
		return Tick{}, fmt.Errorf("decode trade data: %w", err)
	}
	if len(trades) == 0 {
		return Tick{}, errEmptyTrade
	}

	first := trades[0]
	r.logger.Debug("trade",
		"symbol", first.Symbol,
		"price", first.Price,
		"entries", len(trades),
	)

	return Tick{
		Symbol:     first.Symbol,
		Price:      first.Price,
		ReceivedAt: raw.ReceivedAt,
	}, nil
}

func (r *router) countParseError() {
	r.mu.Lock()
	r.parseErrors++
	r.mu.Unlock()
}
