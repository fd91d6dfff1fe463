package router

import (
	"encoding/json"
	"time"
)

// Feed message types.
const (
	TypeTrade = "trade"
	TypeError = "error"
)

// Tick is the latest price for a symbol, as deposited into the update buffer.
type Tick struct {
	Symbol     string
	Price      float64
	ReceivedAt time.Time
}

// messageEnvelope is the outer shape of every feed message.
type messageEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// tradeData is one element of a trade message's data array.
type tradeData struct {
	Symbol    string  `json:"s"`
	Price     float64 `json:"p"`
	Volume    float64 `json:"v"`
	Timestamp int64   `json:"t"` // Milliseconds
}

// StatusSink receives protocol errors reported by the feed.
type StatusSink interface {
	SetError(msg string)
}
