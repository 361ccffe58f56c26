package wayland

import (
	"errors"
	"os"
	"path/filepath"
)

const defaultDisplay = "wayland-0"

// SocketPath resolves the socket a display name refers to: an absolute name
// is used as is, otherwise it is looked up in $XDG_RUNTIME_DIR. An empty
// name falls back to $WAYLAND_DISPLAY, then wayland-0.
func SocketPath(display string) (string, error) {
	if display == "" {
		display = os.Getenv("WAYLAND_DISPLAY")
	}
	if display == "" {
		display = defaultDisplay
	}
	if filepath.IsAbs(display) {
		return display, nil
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(dir, display), nil
}
