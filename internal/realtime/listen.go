package realtime

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/typester/riverql/internal/endpoint"
)

const shutdownTimeout = 5 * time.Second

// Listen opens a listener for addr. For unix sockets the parent directory is
// created and a stale socket file is removed first.
func Listen(addr endpoint.Listen) (net.Listener, error) {
	if addr.Network == "unix" {
		if err := os.MkdirAll(filepath.Dir(addr.Address), 0o700); err != nil {
			return nil, fmt.Errorf("create socket directory: %w", err)
		}
		if err := os.Remove(addr.Address); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}
	ln, err := net.Listen(addr.Network, addr.Address)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

// Serve serves s on ln until ctx is cancelled, then closes websocket
// connections and shuts the HTTP server down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("http shutdown", "err", err)
		}
	}()

	s.log.Info("server listening", "network", ln.Addr().Network(), "address", ln.Addr().String())
	err := httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}
