package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
feed:
  url: wss://feed.example.com/tikka/app
  reconnect_delay: 2s
  buffer_size: 64
chart:
  capacity: 500
  refresh_interval: 250ms
symbols:
  path: /var/lib/tikka/symbol_list.json
viewer:
  addr: ":9000"
logging:
  level: debug
  file: /var/log/tikka.log
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.URL != "wss://feed.example.com/tikka/app" {
		t.Errorf("Feed.URL = %q, want %q", cfg.Feed.URL, "wss://feed.example.com/tikka/app")
	}
	if cfg.Feed.ReconnectDelay != 2*time.Second {
		t.Errorf("Feed.ReconnectDelay = %v, want 2s", cfg.Feed.ReconnectDelay)
	}
	if cfg.Feed.BufferSize != 64 {
		t.Errorf("Feed.BufferSize = %d, want 64", cfg.Feed.BufferSize)
	}
	if cfg.Chart.Capacity != 500 {
		t.Errorf("Chart.Capacity = %d, want 500", cfg.Chart.Capacity)
	}
	if cfg.Chart.RefreshInterval != 250*time.Millisecond {
		t.Errorf("Chart.RefreshInterval = %v, want 250ms", cfg.Chart.RefreshInterval)
	}
	if cfg.Symbols.Path != "/var/lib/tikka/symbol_list.json" {
		t.Errorf("Symbols.Path = %q", cfg.Symbols.Path)
	}
	if cfg.Viewer.Addr != ":9000" {
		t.Errorf("Viewer.Addr = %q, want %q", cfg.Viewer.Addr, ":9000")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	// Load does not apply defaults.
	if cfg.Chart.Width != 0 {
		t.Errorf("Chart.Width = %d, want 0 before defaults", cfg.Chart.Width)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TIKKA_FEED_HOST", "prices.example.net")
	t.Setenv("TIKKA_VIEWER_ADDR", "0.0.0.0:8421")

	yaml := `
feed:
  url: wss://${TIKKA_FEED_HOST}/tikka/app
viewer:
  addr: ${TIKKA_VIEWER_ADDR}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.URL != "wss://prices.example.net/tikka/app" {
		t.Errorf("Feed.URL = %q, want expanded host", cfg.Feed.URL)
	}
	if cfg.Viewer.Addr != "0.0.0.0:8421" {
		t.Errorf("Viewer.Addr = %q, want %q", cfg.Viewer.Addr, "0.0.0.0:8421")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "read config file") {
		t.Errorf("error = %q, want read config file prefix", err.Error())
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "feed: [unterminated")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for invalid yaml")
	}
	if !strings.Contains(err.Error(), "parse config yaml") {
		t.Errorf("error = %q, want parse config yaml prefix", err.Error())
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
feed:
  url: ws://127.0.0.1:5001/tikka/app
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Feed.URL != "ws://127.0.0.1:5001/tikka/app" {
		t.Errorf("Feed.URL = %q, should not be replaced by default", cfg.Feed.URL)
	}
	if cfg.Feed.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("Feed.ReconnectDelay = %v, want default %v", cfg.Feed.ReconnectDelay, DefaultReconnectDelay)
	}
	if cfg.Feed.HeartbeatInterval != DefaultHeartbeatInterval {
		t.Errorf("Feed.HeartbeatInterval = %v, want default %v", cfg.Feed.HeartbeatInterval, DefaultHeartbeatInterval)
	}
	if cfg.Chart.Capacity != DefaultCapacity {
		t.Errorf("Chart.Capacity = %d, want default %d", cfg.Chart.Capacity, DefaultCapacity)
	}
	if cfg.Chart.RefreshInterval != DefaultRefreshInterval {
		t.Errorf("Chart.RefreshInterval = %v, want default %v", cfg.Chart.RefreshInterval, DefaultRefreshInterval)
	}
	if cfg.Chart.EmptyTimeout != DefaultEmptyTimeout {
		t.Errorf("Chart.EmptyTimeout = %v, want default %v", cfg.Chart.EmptyTimeout, DefaultEmptyTimeout)
	}
	if cfg.Viewer.Addr != DefaultViewerAddr {
		t.Errorf("Viewer.Addr = %q, want default %q", cfg.Viewer.Addr, DefaultViewerAddr)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, DefaultLogLevel)
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, "chart:\n  capacity: 1\n")

	_, err := LoadAndValidate(path)
	if err == nil {
		t.Fatal("LoadAndValidate() expected error for capacity 1")
	}
	want := "validate config: chart.capacity must be between 2 and 100000, got 1"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config { return *Default() }

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing feed url",
			mutate:  func(c *Config) { c.Feed.URL = "" },
			wantErr: "feed.url is required",
		},
		{
			name:    "http feed url",
			mutate:  func(c *Config) { c.Feed.URL = "https://example.com/tikka/app" },
			wantErr: `feed.url must be a ws:// or wss:// URL, got "https://example.com/tikka/app"`,
		},
		{
			name:    "negative reconnect delay",
			mutate:  func(c *Config) { c.Feed.ReconnectDelay = -time.Second },
			wantErr: "feed.reconnect_delay must be > 0",
		},
		{
			name:    "zero buffer size",
			mutate:  func(c *Config) { c.Feed.BufferSize = -1 },
			wantErr: "feed.buffer_size must be >= 1",
		},
		{
			name:    "heartbeat disabled",
			mutate:  func(c *Config) { c.Feed.HeartbeatInterval = -1 },
			wantErr: "",
		},
		{
			name:    "capacity too large",
			mutate:  func(c *Config) { c.Chart.Capacity = MaxCapacity + 1 },
			wantErr: "chart.capacity must be between 2 and 100000, got 100001",
		},
		{
			name:    "zero refresh interval",
			mutate:  func(c *Config) { c.Chart.RefreshInterval = 0 },
			wantErr: "chart.refresh_interval must be > 0",
		},
		{
			name:    "bad chart size",
			mutate:  func(c *Config) { c.Chart.Width = 0 },
			wantErr: "chart.width and chart.height must be >= 1, got 0x400",
		},
		{
			name:    "bad symbols url",
			mutate:  func(c *Config) { c.Symbols.URL = "ftp://example.com/list.json" },
			wantErr: `symbols.url must be an http(s) URL, got "ftp://example.com/list.json"`,
		},
		{
			name:    "missing viewer addr",
			mutate:  func(c *Config) { c.Viewer.Addr = "" },
			wantErr: "viewer.addr is required",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: `logging.level: unknown level "loud"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
