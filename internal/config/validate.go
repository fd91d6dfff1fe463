package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := c.Feed.validate("feed"); err != nil {
		return err
	}

	if c.Chart.Capacity < MinCapacity || c.Chart.Capacity > MaxCapacity {
		return fmt.Errorf("chart.capacity must be between %d and %d, got %d", MinCapacity, MaxCapacity, c.Chart.Capacity)
	}
	if c.Chart.RefreshInterval <= 0 {
		return errors.New("chart.refresh_interval must be > 0")
	}
	if c.Chart.EmptyTimeout <= 0 {
		return errors.New("chart.empty_timeout must be > 0")
	}
	if c.Chart.Width < 1 || c.Chart.Height < 1 {
		return fmt.Errorf("chart.width and chart.height must be >= 1, got %dx%d", c.Chart.Width, c.Chart.Height)
	}

	if c.Symbols.URL != "" {
		u, err := url.Parse(c.Symbols.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("symbols.url must be an http(s) URL, got %q", c.Symbols.URL)
		}
	}

	if c.Viewer.Addr == "" {
		return errors.New("viewer.addr is required")
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

func (f *FeedConfig) validate(prefix string) error {
	if f.URL == "" {
		return fmt.Errorf("%s.url is required", prefix)
	}
	u, err := url.Parse(f.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("%s.url must be a ws:// or wss:// URL, got %q", prefix, f.URL)
	}
	if f.ReconnectDelay <= 0 {
		return fmt.Errorf("%s.reconnect_delay must be > 0", prefix)
	}
	if f.PollInterval <= 0 {
		return fmt.Errorf("%s.poll_interval must be > 0", prefix)
	}
	if f.PingTimeout <= 0 {
		return fmt.Errorf("%s.ping_timeout must be > 0", prefix)
	}
	if f.BufferSize < 1 {
		return fmt.Errorf("%s.buffer_size must be >= 1", prefix)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level %q", s)
	}
}
