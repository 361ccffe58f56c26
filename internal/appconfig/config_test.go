package appconfig

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath failed: %v", err)
	}
	if path != filepath.Join(dir, "riverql", "config.yaml") {
		t.Errorf("unexpected path %q", path)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("RQ_DIR", "/run/rq")
	if got := expandEnv("unix://$RQ_DIR/s.sock"); got != "unix:///run/rq/s.sock" {
		t.Errorf("expandEnv = %q", got)
	}
	if got := expandEnv("$RQ_UNSET_VAR/x"); got != "$RQ_UNSET_VAR/x" {
		t.Errorf("unknown variables must stay, got %q", got)
	}
}
