// Package status holds the single user-visible status line: protocol errors
// reported by the feed and hints for rejected input.
package status

import (
	"sync"
	"time"
)

// Kind classifies a status message.
type Kind string

const (
	KindNone  Kind = ""
	KindError Kind = "error"
	KindHint  Kind = "hint"
)

// Message is the current status line.
type Message struct {
	Text string    `json:"text"`
	Kind Kind      `json:"kind,omitempty"`
	At   time.Time `json:"at,omitempty"`
}

// Board is a thread-safe status line. Each Set replaces the previous message.
type Board struct {
	mu  sync.RWMutex
	msg Message
	now func() time.Time
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{now: time.Now}
}

// SetError shows a protocol error.
func (b *Board) SetError(text string) {
	b.set(text, KindError)
}

// SetHint shows an input hint.
func (b *Board) SetHint(text string) {
	b.set(text, KindHint)
}

// Clear empties the board.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msg = Message{}
}

// Get returns the current message.
func (b *Board) Get() Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.msg
}

func (b *Board) set(text string, kind Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msg = Message{Text: text, Kind: kind, At: b.now()}
}
