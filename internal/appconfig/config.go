// Package appconfig loads riverql configuration from a YAML file, RIVERQL_*
// environment variables and command line flags, in increasing precedence.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/typester/riverql/internal/endpoint"
)

// EnvPrefix prefixes environment overrides, e.g. RIVERQL_SUBSCRIPTIONS_BUFFER.
const EnvPrefix = "RIVERQL"

// Config is the top-level application configuration.
type Config struct {
	Listen        string              `mapstructure:"listen" yaml:"listen"`
	Endpoint      string              `mapstructure:"endpoint" yaml:"endpoint"`
	Subscriptions SubscriptionsConfig `mapstructure:"subscriptions" yaml:"subscriptions"`
	WebSocket     WebSocketConfig     `mapstructure:"websocket" yaml:"websocket"`
	Wayland       WaylandConfig       `mapstructure:"wayland" yaml:"wayland"`
}

// SubscriptionsConfig controls the subscription registry.
type SubscriptionsConfig struct {
	Buffer        int  `mapstructure:"buffer" yaml:"buffer"`
	RequireOutput bool `mapstructure:"require_output" yaml:"require_output"`
}

// WebSocketConfig tunes the graphql-transport-ws transport.
type WebSocketConfig struct {
	PingInterval time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	InitTimeout  time.Duration `mapstructure:"init_timeout" yaml:"init_timeout"`
	SendBuffer   int           `mapstructure:"send_buffer" yaml:"send_buffer"`
}

// MarshalYAML writes durations in their string form so the output loads back.
func (c WebSocketConfig) MarshalYAML() (interface{}, error) {
	return struct {
		PingInterval string `yaml:"ping_interval"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
		InitTimeout  string `yaml:"init_timeout"`
		SendBuffer   int    `yaml:"send_buffer"`
	}{
		PingInterval: c.PingInterval.String(),
		ReadTimeout:  c.ReadTimeout.String(),
		WriteTimeout: c.WriteTimeout.String(),
		InitTimeout:  c.InitTimeout.String(),
		SendBuffer:   c.SendBuffer,
	}, nil
}

// WaylandConfig selects the compositor connection.
type WaylandConfig struct {
	Display       string `mapstructure:"display" yaml:"display"`
	WaitForSocket bool   `mapstructure:"wait_for_socket" yaml:"wait_for_socket"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Listen:   endpoint.DefaultListen(),
		Endpoint: endpoint.DefaultEndpoint(),
		Subscriptions: SubscriptionsConfig{
			Buffer: 256,
		},
		WebSocket: WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
			InitTimeout:  10 * time.Second,
			SendBuffer:   256,
		},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/riverql/config.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "riverql", "config.yaml"), nil
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	if _, err := endpoint.ParseListen(c.Listen); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if _, err := endpoint.ParseEndpoint(c.Endpoint); err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	if c.Subscriptions.Buffer <= 0 {
		return fmt.Errorf("subscriptions.buffer must be positive, got %d", c.Subscriptions.Buffer)
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket.send_buffer must be positive, got %d", c.WebSocket.SendBuffer)
	}
	durations := []struct {
		key   string
		value time.Duration
	}{
		{"websocket.ping_interval", c.WebSocket.PingInterval},
		{"websocket.read_timeout", c.WebSocket.ReadTimeout},
		{"websocket.write_timeout", c.WebSocket.WriteTimeout},
		{"websocket.init_timeout", c.WebSocket.InitTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.key, d.value)
		}
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("websocket.read_timeout (%s) must exceed websocket.ping_interval (%s)",
			c.WebSocket.ReadTimeout, c.WebSocket.PingInterval)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
