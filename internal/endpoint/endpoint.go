// Package endpoint parses server listen addresses and client endpoints.
//
// Listen addresses accept tcp://host:port, unix:///path, a bare host:port or
// a bare filesystem path. Endpoints accept ws:// and wss:// URLs, tcp://,
// http:// and https:// (rewritten to ws/wss), a bare host[:port], and
// unix:///path#/graphql for a websocket carried over a unix socket.
package endpoint

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultPath is the HTTP path serving GraphQL.
const DefaultPath = "/graphql"

// SocketName is the file name of the default unix socket.
const SocketName = "riverql.sock"

// Listen is where the server accepts connections.
type Listen struct {
	Network string // "tcp" or "unix"
	Address string
}

func (l Listen) String() string {
	return l.Network + "://" + l.Address
}

// Endpoint is where a client connects.
type Endpoint struct {
	// URL is the websocket URL. For unix endpoints the host is a placeholder.
	URL *url.URL
	// Socket is the unix socket path; empty for tcp endpoints.
	Socket string
}

func (e Endpoint) String() string {
	if e.Socket != "" {
		return "unix://" + e.Socket + "#" + e.URL.Path
	}
	return e.URL.String()
}

// DefaultSocketPath returns $XDG_RUNTIME_DIR/riverql.sock, falling back to
// /run/user/<uid>/riverql.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, SocketName)
	}
	return filepath.Join("/run/user", strconv.Itoa(os.Geteuid()), SocketName)
}

// DefaultListen returns the default listen address string.
func DefaultListen() string {
	return "unix://" + DefaultSocketPath()
}

// DefaultEndpoint returns the endpoint matching DefaultListen.
func DefaultEndpoint() string {
	return "unix://" + DefaultSocketPath() + "#" + DefaultPath
}

// ParseListen parses a listen address.
func ParseListen(value string) (Listen, error) {
	if rest, ok := strings.CutPrefix(value, "unix://"); ok {
		if rest == "" {
			return Listen{}, fmt.Errorf("unix listen path cannot be empty")
		}
		return Listen{Network: "unix", Address: rest}, nil
	}

	if rest, ok := strings.CutPrefix(value, "tcp://"); ok {
		addr, err := tcpAddr(rest)
		if err != nil {
			return Listen{}, fmt.Errorf("invalid listen address %q: %w", value, err)
		}
		return Listen{Network: "tcp", Address: addr}, nil
	}

	if addr, err := tcpAddr(value); err == nil {
		return Listen{Network: "tcp", Address: addr}, nil
	}

	if value != "" && !strings.Contains(value, "://") {
		return Listen{Network: "unix", Address: value}, nil
	}
	return Listen{}, fmt.Errorf("invalid listen address %q", value)
}

// tcpAddr accepts a literal ip:port, like a socket address.
func tcpAddr(value string) (string, error) {
	host, port, err := net.SplitHostPort(value)
	if err != nil {
		return "", err
	}
	if net.ParseIP(host) == nil {
		return "", fmt.Errorf("host %q is not an IP address", host)
	}
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return "", fmt.Errorf("invalid port %q", port)
	}
	return net.JoinHostPort(host, strconv.FormatUint(n, 10)), nil
}

// ParseEndpoint parses a client endpoint.
func ParseEndpoint(value string) (Endpoint, error) {
	if rest, ok := strings.CutPrefix(value, "unix://"); ok {
		socket, path, _ := strings.Cut(rest, "#")
		if socket == "" {
			return Endpoint{}, fmt.Errorf("unix endpoint must include socket path")
		}
		return Endpoint{
			URL:    &url.URL{Scheme: "ws", Host: "localhost", Path: normalizePath(path)},
			Socket: socket,
		}, nil
	}

	var raw string
	switch {
	case strings.HasPrefix(value, "ws://"), strings.HasPrefix(value, "wss://"):
		raw = value
	case strings.HasPrefix(value, "tcp://"):
		raw = "ws://" + strings.TrimPrefix(value, "tcp://")
	case strings.HasPrefix(value, "http://"):
		raw = "ws://" + strings.TrimPrefix(value, "http://")
	case strings.HasPrefix(value, "https://"):
		raw = "wss://" + strings.TrimPrefix(value, "https://")
	case strings.Contains(value, "//"):
		return Endpoint{}, fmt.Errorf("unsupported endpoint scheme in %q", value)
	default:
		raw = "ws://" + value
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %w", value, err)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("endpoint %q has no host", value)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultPath
	}
	return Endpoint{URL: u}, nil
}

func normalizePath(p string) string {
	switch {
	case p == "":
		return DefaultPath
	case strings.HasPrefix(p, "/"):
		return p
	default:
		return "/" + p
	}
}
