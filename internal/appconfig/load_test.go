package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/7")

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Listen != "unix:///run/user/7/riverql.sock" {
		t.Errorf("unexpected default listen %q", cfg.Listen)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	if _, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	t.Setenv("RIVERQL_TEST_DIR", "/srv/rq")
	path := writeConfig(t, `
listen: unix://${RIVERQL_TEST_DIR}/riverql.sock
subscriptions:
  buffer: 32
  require_output: true
websocket:
  ping_interval: 5s
  init_timeout: 2s
wayland:
  display: wayland-1
`)
	t.Setenv("RIVERQL_WEBSOCKET_SEND_BUFFER", "64")
	t.Setenv("RIVERQL_SUBSCRIPTIONS_BUFFER", "48")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", "", "")
	flags.Bool("wait", false, "")
	if err := flags.Parse([]string{"--wait"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{
		Path:     path,
		Flags:    flags,
		FlagKeys: map[string]string{"listen": "listen", "wait": "wayland.wait_for_socket"},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := DefaultConfig()
	want.Listen = "unix:///srv/rq/riverql.sock" // unset flag does not override
	want.Subscriptions = SubscriptionsConfig{Buffer: 48, RequireOutput: true}
	want.WebSocket.PingInterval = 5 * time.Second
	want.WebSocket.InitTimeout = 2 * time.Second
	want.WebSocket.SendBuffer = 64
	want.Wayland = WaylandConfig{Display: "wayland-1", WaitForSocket: true}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FlagOverridesFile(t *testing.T) {
	path := writeConfig(t, "listen: 127.0.0.1:9000\n")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", "", "")
	if err := flags.Parse([]string{"--listen", "tcp://127.0.0.1:9100"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(LoadOptions{Path: path, Flags: flags, FlagKeys: map[string]string{"listen": "listen"}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != "tcp://127.0.0.1:9100" {
		t.Errorf("expected flag to win, got %q", cfg.Listen)
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	path := writeConfig(t, "")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	_, err := Load(LoadOptions{Path: path, Flags: flags, FlagKeys: map[string]string{"missing": "listen"}})
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Fatalf("expected unknown flag error, got %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"subscriptions:\n  buffer: 0\n":      "subscriptions.buffer",
		"websocket:\n  send_buffer: -1\n":    "websocket.send_buffer",
		"websocket:\n  write_timeout: 0s\n":  "websocket.write_timeout",
		"websocket:\n  read_timeout: 10s\n":  "must exceed",
		"listen: \"http://x\"\n":             "listen",
		"endpoint: \"ftp://host/graphql\"\n": "endpoint",
	}
	for body, want := range tests {
		_, err := Load(LoadOptions{Path: writeConfig(t, body)})
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("config %q: expected error containing %q, got %v", body, want, err)
		}
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WebSocket.PingInterval = 15 * time.Second
	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), "ping_interval: 15s") {
		t.Errorf("expected duration string in output:\n%s", data)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}

	loaded, err := Load(LoadOptions{Path: writeConfig(t, string(data))})
	if err != nil {
		t.Fatalf("Load of marshalled config failed: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
