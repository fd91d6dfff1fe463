package config

import "time"

// Config is the root configuration for a tikka instance.
type Config struct {
	Feed    FeedConfig    `yaml:"feed"`
	Chart   ChartConfig   `yaml:"chart"`
	Symbols SymbolsConfig `yaml:"symbols"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Logging LoggingConfig `yaml:"logging"`
}

// FeedConfig holds the price feed connection settings.
type FeedConfig struct {
	URL               string        `yaml:"url"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	PingTimeout       time.Duration `yaml:"ping_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"` // negative disables client pings
	BufferSize        int           `yaml:"buffer_size"`
}

// ChartConfig holds time-series and rendering settings.
type ChartConfig struct {
	Capacity        int           `yaml:"capacity"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	EmptyTimeout    time.Duration `yaml:"empty_timeout"`
	Width           int           `yaml:"width"`
	Height          int           `yaml:"height"`
}

// SymbolsConfig locates the symbol directory. Path wins over URL.
// Both empty means no directory is loaded.
type SymbolsConfig struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// ViewerConfig holds the HTTP viewer settings.
type ViewerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // rotated log file; empty logs to stdout only
}
