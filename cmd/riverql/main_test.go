package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"pkt.systems/pslog"

	"github.com/typester/riverql/internal/appconfig"
	"github.com/typester/riverql/internal/client"
	"github.com/typester/riverql/internal/endpoint"
	"github.com/typester/riverql/internal/logx"
	"github.com/typester/riverql/internal/watcher"
)

func TestArgv0Alias(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"riverql-subscribe", "subscribe"},
		{"riverqld", "serve"},
		{"riverql", ""},
	}
	for _, tc := range tests {
		if got := argv0Alias(tc.base); got != tc.want {
			t.Fatalf("argv0Alias(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}
}

func TestApplyArgv0Alias(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{nil, nil},
		{[]string{"riverql", "serve"}, []string{"riverql", "serve"}},
		{[]string{"/usr/bin/riverql-subscribe", "@q.graphql"}, []string{"/usr/bin/riverql-subscribe", "subscribe", "@q.graphql"}},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, applyArgv0Alias(tc.args)); diff != "" {
			t.Errorf("applyArgv0Alias(%v) mismatch (-want +got):\n%s", tc.args, diff)
		}
	}
}

func TestParseVariables(t *testing.T) {
	vars, err := parseVariables(`{"name":"DP-1"}`)
	if err != nil || vars["name"] != "DP-1" {
		t.Fatalf("parseVariables = %v, %v", vars, err)
	}
	if vars, err := parseVariables(""); err != nil || vars != nil {
		t.Errorf("empty variables = %v, %v", vars, err)
	}
	if _, err := parseVariables("[1]"); err == nil {
		t.Error("expected error for non-object variables")
	}
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "riverql ") {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestConfigCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("subscriptions:\n  buffer: 12\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "-c", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if !strings.Contains(out.String(), "buffer: 12") {
		t.Errorf("expected buffer override in output:\n%s", out.String())
	}
}

// TestServeReplay runs the whole pipeline: replayed compositor callbacks feed
// the bridge, and a client queries the result over a unix socket.
func TestServeReplay(t *testing.T) {
	dir, err := os.MkdirTemp("", "rqs")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	replay := filepath.Join(dir, "status.jsonl")
	lines := strings.Join([]string{
		`{"kind":"output_added","output":1,"name":"DP-1"}`,
		`{"kind":"focused_tags","output":1,"tags":5}`,
		`{"kind":"layout","output":1,"layout":"rivertile"}`,
	}, "\n")
	if err := os.WriteFile(replay, []byte(lines), 0o600); err != nil {
		t.Fatal(err)
	}

	socket := filepath.Join(dir, "riverql.sock")
	cfg := appconfig.DefaultConfig()
	cfg.Listen = "unix://" + socket

	ctx, cancel := context.WithCancel(pslog.ContextWithLogger(context.Background(), logx.Discard()))
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- runServe(ctx, cfg, replay) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	if err := watcher.WaitForPath(waitCtx, socket); err != nil {
		t.Fatalf("server socket did not appear: %v", err)
	}

	ep, err := endpoint.ParseEndpoint("unix://" + socket)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"data":{"output":{"focusedTags":5,"layoutName":"rivertile"}}}`
	deadline := time.Now().Add(5 * time.Second)
	for {
		var out bytes.Buffer
		err := client.New(ep, &out, logx.Discard()).Run(ctx, `{ output(name: "DP-1") { focusedTags layoutName } }`, nil)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if strings.TrimSpace(out.String()) == want {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %s, last got %s", want, out.String())
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("runServe returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not stop")
	}
}

func TestServeReplay_InvariantIsFatal(t *testing.T) {
	dir, err := os.MkdirTemp("", "rqf")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	replay := filepath.Join(dir, "status.jsonl")
	lines := `{"kind":"output_added","output":1,"name":"DP-1"}` + "\n" +
		`{"kind":"output_added","output":2,"name":"DP-1"}` + "\n"
	if err := os.WriteFile(replay, []byte(lines), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := appconfig.DefaultConfig()
	cfg.Listen = "unix://" + filepath.Join(dir, "riverql.sock")

	ctx := pslog.ContextWithLogger(context.Background(), logx.Discard())
	errc := make(chan error, 1)
	go func() { errc <- runServe(ctx, cfg, replay) }()
	select {
	case err := <-errc:
		if err == nil || !strings.Contains(err.Error(), "status source") {
			t.Fatalf("expected fatal status source error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not stop on invariant violation")
	}
}
