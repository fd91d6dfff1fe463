package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultFeedURL           = "wss://localhost/tikka/app"
	DefaultReconnectDelay    = 1 * time.Second
	DefaultPollInterval      = 100 * time.Millisecond
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultPingTimeout       = 60 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultBufferSize        = 256
	DefaultCapacity          = 1000
	DefaultRefreshInterval   = 420 * time.Millisecond
	DefaultEmptyTimeout      = 60 * time.Second
	DefaultChartWidth        = 800
	DefaultChartHeight       = 400
	DefaultViewerAddr        = "127.0.0.1:8420"
	DefaultLogLevel          = "info"
)

// Capacity bounds for chart.capacity.
const (
	MinCapacity = 2
	MaxCapacity = 100000
)

func (c *Config) applyDefaults() {
	// Feed
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.ReconnectDelay == 0 {
		c.Feed.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Feed.PollInterval == 0 {
		c.Feed.PollInterval = DefaultPollInterval
	}
	if c.Feed.HandshakeTimeout == 0 {
		c.Feed.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}
	if c.Feed.HeartbeatInterval == 0 {
		c.Feed.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultBufferSize
	}

	// Chart
	if c.Chart.Capacity == 0 {
		c.Chart.Capacity = DefaultCapacity
	}
	if c.Chart.RefreshInterval == 0 {
		c.Chart.RefreshInterval = DefaultRefreshInterval
	}
	if c.Chart.EmptyTimeout == 0 {
		c.Chart.EmptyTimeout = DefaultEmptyTimeout
	}
	if c.Chart.Width == 0 {
		c.Chart.Width = DefaultChartWidth
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = DefaultChartHeight
	}

	// Viewer
	if c.Viewer.Addr == "" {
		c.Viewer.Addr = DefaultViewerAddr
	}

	// Logging
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}
