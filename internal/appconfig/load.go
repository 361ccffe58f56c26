package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// Path is the config file. Empty uses DefaultConfigPath, which may be
	// missing; an explicit Path must exist.
	Path string
	// Flags overrides config keys with command line flags that were set.
	Flags *pflag.FlagSet
	// FlagKeys maps flag names to config keys.
	FlagKeys map[string]string
}

// Load reads configuration from defaults, the config file, the environment
// and flags.
func Load(opts LoadOptions) (Config, error) {
	path := opts.Path
	optional := false
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
		optional = true
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", cfg.Listen)
	v.SetDefault("endpoint", cfg.Endpoint)
	v.SetDefault("subscriptions.buffer", cfg.Subscriptions.Buffer)
	v.SetDefault("subscriptions.require_output", cfg.Subscriptions.RequireOutput)
	v.SetDefault("websocket.ping_interval", cfg.WebSocket.PingInterval)
	v.SetDefault("websocket.read_timeout", cfg.WebSocket.ReadTimeout)
	v.SetDefault("websocket.write_timeout", cfg.WebSocket.WriteTimeout)
	v.SetDefault("websocket.init_timeout", cfg.WebSocket.InitTimeout)
	v.SetDefault("websocket.send_buffer", cfg.WebSocket.SendBuffer)
	v.SetDefault("wayland.display", cfg.Wayland.Display)
	v.SetDefault("wayland.wait_for_socket", cfg.Wayland.WaitForSocket)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if !missing || !optional {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if opts.Flags != nil {
		for name, key := range opts.FlagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				return Config{}, fmt.Errorf("unknown flag %q for config key %s", name, key)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Listen = expandEnv(cfg.Listen)
	cfg.Endpoint = expandEnv(cfg.Endpoint)
	cfg.Wayland.Display = expandEnv(cfg.Wayland.Display)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// expandEnv expands $VAR references, leaving unknown ones in place.
func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}
