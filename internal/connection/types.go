package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrStopped         = errors.New("connection manager stopped")
)

// State is the lifecycle state of the managed connection.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// MarshalText lets State appear by name in JSON and logs.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "closed":
		*s = StateClosed
	case "connecting":
		*s = StateConnecting
	case "open":
		*s = StateOpen
	case "closing":
		*s = StateClosing
	default:
		return fmt.Errorf("unknown connection state %q", text)
	}
	return nil
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a message from the Connection Manager to its MessageHandler.
type RawMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	Attempt    string    // Connection attempt that delivered the message
	ReceivedAt time.Time // Local timestamp when WS Client received message
}

// MessageHandler consumes inbound feed messages. HandleMessage is called from
// the manager's read loop and should not block.
type MessageHandler interface {
	HandleMessage(msg RawMessage)
}

// MessageHandlerFunc adapts a function to the MessageHandler interface.
type MessageHandlerFunc func(msg RawMessage)

// HandleMessage calls f.
func (f MessageHandlerFunc) HandleMessage(msg RawMessage) { f(msg) }

// SubscriptionSource reports the symbol to resubscribe after a reconnect.
// An empty string means nothing is subscribed.
type SubscriptionSource interface {
	Current() string
}

// Command is a request sent to the feed server.
type Command struct {
	Type   string `json:"type"` // "subscribe" or "unsubscribe"
	Symbol string `json:"symbol"`
}

// SubscribeCommand encodes a subscribe request for symbol.
func SubscribeCommand(symbol string) []byte {
	data, _ := json.Marshal(Command{Type: "subscribe", Symbol: symbol})
	return data
}

// UnsubscribeCommand encodes an unsubscribe request for symbol.
func UnsubscribeCommand(symbol string) []byte {
	data, _ := json.Marshal(Command{Type: "unsubscribe", Symbol: symbol})
	return data
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL               string        // WebSocket URL (e.g., wss://example.com/tikka/app)
	HandshakeTimeout  time.Duration // Dial handshake deadline
	PingTimeout       time.Duration // Max time without ping before considering connection stale
	HeartbeatInterval time.Duration // How often keepalive pings are sent
	WriteTimeout      time.Duration // Write deadline for sends
	BufferSize        int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout:  10 * time.Second,
		PingTimeout:       60 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		WriteTimeout:      5 * time.Second,
		BufferSize:        256,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	URL            string        // Feed WebSocket URL
	ReconnectDelay time.Duration // Fixed wait before every reconnect attempt
	PollInterval   time.Duration // Upper bound between readiness checks in Send
	Client         ClientConfig  // Per-connection settings; URL is filled from the manager
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ReconnectDelay: 1 * time.Second,
		PollInterval:   100 * time.Millisecond,
		Client:         DefaultClientConfig(),
	}
}
