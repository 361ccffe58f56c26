// Package logx binds pslog loggers to contexts and annotates them with
// connection and subscription identifiers.
package logx

import (
	"context"
	"io"

	"pkt.systems/pslog"
)

type contextKey int

const (
	connKey contextKey = iota
	subKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// Discard returns a logger that writes nowhere.
func Discard() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
}

// WithConn annotates the context logger with a connection id and stores both
// on the returned context.
func WithConn(ctx context.Context, connID string) (context.Context, pslog.Logger) {
	log := pslog.Ctx(ctx)
	if connID == "" {
		return ctx, log
	}
	if current, ok := ctx.Value(connKey).(string); ok && current == connID {
		return ctx, log
	}
	log = log.With("conn", connID)
	ctx = pslog.ContextWithLogger(ctx, log)
	return context.WithValue(ctx, connKey, connID), log
}

// WithSubscription annotates the logger with a subscription id and the
// operation id the client chose for it.
func WithSubscription(log pslog.Logger, subID, opID string) pslog.Logger {
	if subID != "" {
		log = log.With("sub", subID)
	}
	if opID != "" {
		log = log.With("op", opID)
	}
	return log
}

// ConnID returns the connection id stored by WithConn.
func ConnID(ctx context.Context) string {
	id, _ := ctx.Value(connKey).(string)
	return id
}
