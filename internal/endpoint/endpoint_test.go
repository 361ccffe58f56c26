package endpoint

import (
	"strings"
	"testing"
)

func TestParseListen(t *testing.T) {
	tests := []struct {
		in   string
		want Listen
	}{
		{"unix:///run/user/1000/riverql.sock", Listen{"unix", "/run/user/1000/riverql.sock"}},
		{"tcp://127.0.0.1:8080", Listen{"tcp", "127.0.0.1:8080"}},
		{"127.0.0.1:9000", Listen{"tcp", "127.0.0.1:9000"}},
		{"[::1]:9000", Listen{"tcp", "[::1]:9000"}},
		{"/tmp/riverql.sock", Listen{"unix", "/tmp/riverql.sock"}},
		{"relative.sock", Listen{"unix", "relative.sock"}},
	}
	for _, tt := range tests {
		got, err := ParseListen(tt.in)
		if err != nil {
			t.Errorf("ParseListen(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseListen(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseListen_Invalid(t *testing.T) {
	for _, in := range []string{"", "unix://", "tcp://localhost:80", "tcp://127.0.0.1:99999", "http://127.0.0.1:80"} {
		if got, err := ParseListen(in); err == nil {
			t.Errorf("ParseListen(%q) = %+v, expected error", in, got)
		}
	}
}

func TestListenString(t *testing.T) {
	l := Listen{Network: "unix", Address: "/tmp/x.sock"}
	if l.String() != "unix:///tmp/x.sock" {
		t.Errorf("unexpected String() %q", l.String())
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		url    string
		socket string
	}{
		{"ws://127.0.0.1:8080/graphql", "ws://127.0.0.1:8080/graphql", ""},
		{"ws://127.0.0.1:8080", "ws://127.0.0.1:8080/graphql", ""},
		{"wss://example.com/", "wss://example.com/graphql", ""},
		{"tcp://127.0.0.1:8080", "ws://127.0.0.1:8080/graphql", ""},
		{"http://localhost:8080/api", "ws://localhost:8080/api", ""},
		{"https://example.com", "wss://example.com/graphql", ""},
		{"localhost:8080", "ws://localhost:8080/graphql", ""},
		{"unix:///tmp/riverql.sock#/graphql", "ws://localhost/graphql", "/tmp/riverql.sock"},
		{"unix:///tmp/riverql.sock", "ws://localhost/graphql", "/tmp/riverql.sock"},
		{"unix:///tmp/riverql.sock#custom", "ws://localhost/custom", "/tmp/riverql.sock"},
	}
	for _, tt := range tests {
		got, err := ParseEndpoint(tt.in)
		if err != nil {
			t.Errorf("ParseEndpoint(%q) failed: %v", tt.in, err)
			continue
		}
		if got.URL.String() != tt.url || got.Socket != tt.socket {
			t.Errorf("ParseEndpoint(%q) = (%s, %q), want (%s, %q)", tt.in, got.URL, got.Socket, tt.url, tt.socket)
		}
	}
}

func TestParseEndpoint_Invalid(t *testing.T) {
	tests := map[string]string{
		"unix://":          "socket path",
		"unix://#/graphql": "socket path",
		"ftp://host/x":     "unsupported endpoint scheme",
		"ws://":            "no host",
	}
	for in, want := range tests {
		_, err := ParseEndpoint(in)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("ParseEndpoint(%q) = %v, want error containing %q", in, err, want)
		}
	}
}

func TestDefaults(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/42")
	if got := DefaultSocketPath(); got != "/run/user/42/riverql.sock" {
		t.Errorf("DefaultSocketPath() = %q", got)
	}
	if got := DefaultListen(); got != "unix:///run/user/42/riverql.sock" {
		t.Errorf("DefaultListen() = %q", got)
	}
	ep, err := ParseEndpoint(DefaultEndpoint())
	if err != nil {
		t.Fatalf("default endpoint does not parse: %v", err)
	}
	if ep.Socket != "/run/user/42/riverql.sock" || ep.URL.Path != DefaultPath {
		t.Errorf("unexpected default endpoint %s", ep)
	}

	t.Setenv("XDG_RUNTIME_DIR", "")
	if got := DefaultSocketPath(); !strings.HasPrefix(got, "/run/user/") || !strings.HasSuffix(got, "/riverql.sock") {
		t.Errorf("fallback DefaultSocketPath() = %q", got)
	}
}
