package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/typester/riverql/internal/appconfig"
	"github.com/typester/riverql/internal/bridge"
	"github.com/typester/riverql/internal/endpoint"
	"github.com/typester/riverql/internal/gql"
	"github.com/typester/riverql/internal/realtime"
	"github.com/typester/riverql/internal/river"
	"github.com/typester/riverql/internal/river/wayland"
	"github.com/typester/riverql/internal/watcher"
)

var serveFlagKeys = map[string]string{
	"listen":          "listen",
	"display":         "wayland.display",
	"wait-for-socket": "wayland.wait_for_socket",
	"require-output":  "subscriptions.require_output",
	"buffer":          "subscriptions.buffer",
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var replayPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve river status over GraphQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, serveFlagKeys)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, replayPath)
		},
	}
	flags := cmd.Flags()
	flags.String("listen", "", "listen address (unix:///path, tcp://host:port)")
	flags.String("display", "", "wayland display (default $WAYLAND_DISPLAY)")
	flags.Bool("wait-for-socket", false, "wait for the wayland socket to appear")
	flags.Bool("require-output", false, "reject eventsForOutput for outputs that do not exist")
	flags.Int("buffer", 0, "per-subscription event buffer")
	flags.StringVar(&replayPath, "replay", "", "read compositor callbacks as JSON lines from a file ('-' for stdin) instead of wayland")
	return cmd
}

// runServe wires the status source, the bridge and the transport, and runs
// until ctx is cancelled or either side fails.
func runServe(ctx context.Context, cfg appconfig.Config, replayPath string) error {
	logger := pslog.Ctx(ctx)
	listen, err := endpoint.ParseListen(cfg.Listen)
	if err != nil {
		return err
	}

	b := bridge.New(bridge.Options{
		Buffer:        cfg.Subscriptions.Buffer,
		RequireOutput: cfg.Subscriptions.RequireOutput,
		Logger:        logger,
	})
	srv := realtime.New(gql.NewSchema(b, logger), realtime.Options{
		PingInterval: cfg.WebSocket.PingInterval,
		ReadTimeout:  cfg.WebSocket.ReadTimeout,
		WriteTimeout: cfg.WebSocket.WriteTimeout,
		InitTimeout:  cfg.WebSocket.InitTimeout,
		SendBuffer:   cfg.WebSocket.SendBuffer,
		Logger:       logger,
	})

	src, closeSrc, err := openSource(ctx, cfg, replayPath)
	if err != nil {
		return err
	}
	defer closeSrc()

	ln, err := realtime.Listen(listen)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx, ln) }()

	listener := river.NewListener(b, logger)
	srcErr := make(chan error, 1)
	go func() { srcErr <- listener.Run(ctx, src) }()

	for {
		select {
		case err := <-serveErr:
			cancel()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil

		case err := <-srcErr:
			srcErr = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				cancel()
				<-serveErr
				return fmt.Errorf("status source: %w", err)
			}
			if ctx.Err() == nil {
				logger.Info("status source finished; serving last known state")
			}
		}
	}
}

// openSource returns the replay source when a path is given, otherwise the
// wayland source.
func openSource(ctx context.Context, cfg appconfig.Config, replayPath string) (river.Source, func(), error) {
	logger := pslog.Ctx(ctx)
	switch replayPath {
	case "":
	case "-":
		logger.Info("replaying status from stdin")
		return river.NewReplaySource(os.Stdin), func() {}, nil
	default:
		f, err := os.Open(replayPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open replay: %w", err)
		}
		logger.Info("replaying status", "file", replayPath)
		return river.NewReplaySource(f), func() { closeQuietly(f) }, nil
	}

	if cfg.Wayland.WaitForSocket {
		path, err := wayland.SocketPath(cfg.Wayland.Display)
		if err != nil {
			return nil, nil, err
		}
		if err := watcher.WaitForPath(ctx, path); err != nil {
			return nil, nil, fmt.Errorf("wait for wayland socket: %w", err)
		}
	}
	logger.Info("connecting to river status stream", "display", cfg.Wayland.Display)
	return wayland.NewSource(cfg.Wayland.Display, logger), func() {}, nil
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
