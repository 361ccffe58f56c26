// Package client drives a single graphql-transport-ws operation against a
// riverql server and prints each result as a JSON line.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/term"
	"pkt.systems/pslog"

	"github.com/typester/riverql/internal/endpoint"
	"github.com/typester/riverql/internal/protocol"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// ErrOperation is returned when the server rejects or fails the operation.
var ErrOperation = errors.New("operation failed")

// Client runs operations against one endpoint.
type Client struct {
	endpoint endpoint.Endpoint
	out      io.Writer
	log      pslog.Logger
}

// New creates a client writing results to out.
func New(ep endpoint.Endpoint, out io.Writer, logger pslog.Logger) *Client {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Client{endpoint: ep, out: out, log: logger}
}

// Dial opens a websocket to the endpoint, over its unix socket when it has
// one.
func (c *Client) Dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		Subprotocols:     []string{protocol.Subprotocol},
		HandshakeTimeout: handshakeTimeout,
	}
	if socket := c.endpoint.Socket; socket != "" {
		dialer.NetDialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		}
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint.URL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.endpoint, err)
	}
	if conn.Subprotocol() != protocol.Subprotocol {
		conn.Close()
		return nil, fmt.Errorf("connect %s: server does not speak %s", c.endpoint, protocol.Subprotocol)
	}
	return conn, nil
}

// Run executes query with variables and writes every next payload to the
// output, one JSON document per line. It returns nil once the server
// completes the operation or ctx is cancelled.
func (c *Client) Run(ctx context.Context, query string, variables map[string]interface{}) error {
	conn, err := c.Dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		deadline := time.Now().Add(writeTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
	})
	defer stop()

	err = c.drive(conn, query, variables)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *Client) drive(conn *websocket.Conn, query string, variables map[string]interface{}) error {
	if err := write(conn, protocol.TypeConnectionInit, "", struct{}{}); err != nil {
		return err
	}

	for acked := false; !acked; {
		msg, err := read(conn)
		if err != nil {
			return fmt.Errorf("waiting for connection_ack: %w", err)
		}
		switch msg.Type {
		case protocol.TypeConnectionAck:
			acked = true
		case protocol.TypePing:
			if err := write(conn, protocol.TypePong, "", nil); err != nil {
				return err
			}
		}
	}

	id := uuid.NewString()
	log := c.log.With("op", id)
	sub, err := protocol.NewSubscribe(id, protocol.SubscribePayload{Query: query, Variables: variables})
	if err != nil {
		return err
	}
	if err := send(conn, sub); err != nil {
		return err
	}
	log.Debug("operation sent")

	for {
		msg, err := read(conn)
		if errors.Is(err, io.EOF) {
			log.Debug("connection closed by server")
			return nil
		}
		if err != nil {
			return err
		}
		switch msg.Type {
		case protocol.TypeNext:
			if msg.ID != id {
				continue
			}
			if _, err := fmt.Fprintf(c.out, "%s\n", msg.Payload); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
		case protocol.TypeError:
			log.Error("subscription error", "errors", string(msg.Payload))
			return fmt.Errorf("%w: %s", ErrOperation, msg.Payload)
		case protocol.TypeComplete:
			log.Debug("operation complete")
			return nil
		case protocol.TypePing:
			if err := write(conn, protocol.TypePong, "", nil); err != nil {
				return err
			}
		}
	}
}

func write(conn *websocket.Conn, msgType, id string, payload interface{}) error {
	msg, err := protocol.NewMessage(msgType, id, payload)
	if err != nil {
		return err
	}
	return send(conn, msg)
}

func send(conn *websocket.Conn, msg *protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

// read returns the next protocol message. A normal close reads as io.EOF.
func read(conn *websocket.Conn) (*protocol.Message, error) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil, io.EOF
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil, fmt.Errorf("server closed connection: %d %s", closeErr.Code, closeErr.Text)
			}
			return nil, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		return protocol.ValidateServerMessage(data)
	}
}

// ReadQuery resolves the query argument: inline text, @file, or stdin when
// arg is empty. An interactive stdin is refused.
func ReadQuery(arg string, stdin *os.File) (string, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read query file: %w", err)
		}
		return string(data), nil
	}
	if arg != "" {
		return arg, nil
	}
	if term.IsTerminal(int(stdin.Fd())) {
		return "", errors.New("supply a GraphQL operation or pipe one into stdin")
	}
	return readAll(stdin)
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read query from stdin: %w", err)
	}
	q := strings.TrimSpace(string(data))
	if q == "" {
		return "", errors.New("empty query on stdin")
	}
	return q, nil
}
