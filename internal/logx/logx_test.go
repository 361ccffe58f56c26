package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/pslog"
)

func TestWithConnAddsField(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	ctx, log := WithConn(ctx, "c1")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["conn"] != "c1" {
		t.Fatalf("expected conn field, got %+v", entry)
	}
	if ConnID(ctx) != "c1" {
		t.Fatalf("expected conn id on context, got %q", ConnID(ctx))
	}
}

func TestWithSubscriptionSkipsEmpty(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	WithSubscription(logger, "s1", "").Info("hello")

	entry := capture.firstEntry(t)
	if entry["sub"] != "s1" {
		t.Fatalf("expected sub field, got %+v", entry)
	}
	if _, ok := entry["op"]; ok {
		t.Fatalf("did not expect op field for empty operation id")
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
