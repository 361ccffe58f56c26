// Package realtime serves the GraphQL schema over HTTP and over websockets
// speaking graphql-transport-ws.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	graphql "github.com/graph-gophers/graphql-go"
	"pkt.systems/pslog"

	"github.com/typester/riverql/internal/logx"
	"github.com/typester/riverql/internal/protocol"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultInitTimeout  = 10 * time.Second
	defaultSendBuffer   = 256

	// maxCloseReason is the largest reason a close frame can carry.
	maxCloseReason = 123
)

// Options tunes the websocket transport. Zero values select defaults.
type Options struct {
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	InitTimeout  time.Duration
	SendBuffer   int
	Logger       pslog.Logger
}

func (o *Options) setDefaults() {
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.InitTimeout <= 0 {
		o.InitTimeout = defaultInitTimeout
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.Logger == nil {
		o.Logger = pslog.Ctx(context.Background())
	}
}

// Server manages websocket connections and routes GraphQL operations to the
// schema.
type Server struct {
	schema   *graphql.Schema
	opts     Options
	log      pslog.Logger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	clients   map[*client]bool
	clientsMu sync.RWMutex
}

type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	server *Server
	ctx    context.Context
	cancel context.CancelFunc
	log    pslog.Logger

	initTimer *time.Timer
	closeOnce sync.Once

	mu          sync.Mutex
	initialized bool
	ops         map[string]*operation
}

type operation struct {
	cancel context.CancelFunc
}

// New creates a new realtime server for schema.
func New(schema *graphql.Schema, opts Options) *Server {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(pslog.ContextWithLogger(context.Background(), opts.Logger))
	return &Server{
		schema: schema,
		opts:   opts,
		log:    opts.Logger,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{protocol.Subprotocol},
			CheckOrigin: func(r *http.Request) bool {
				return true // Local status data; any origin may read it.
			},
		},
		ctx:     ctx,
		cancel:  cancel,
		clients: make(map[*client]bool),
	}
}

// Clients returns the number of open websocket connections.
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Close terminates every websocket connection, cancelling their operations.
func (s *Server) Close() {
	s.clientsMu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.RUnlock()

	for _, c := range clients {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
	s.cancel()
}

// handleWebSocket upgrades an HTTP connection to graphql-transport-ws.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade error", "err", err)
		return
	}

	ctx, log := logx.WithConn(s.ctx, uuid.NewString())
	if conn.Subprotocol() != protocol.Subprotocol {
		log.Warn("client did not negotiate subprotocol", "requested", websocket.Subprotocols(r))
		deadline := time.Now().Add(s.opts.WriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseProtocolError, "subprotocol "+protocol.Subprotocol+" required"), deadline)
		conn.Close()
		return
	}

	c := &client{
		id:     logx.ConnID(ctx),
		conn:   conn,
		send:   make(chan []byte, s.opts.SendBuffer),
		server: s,
		log:    log,
		ops:    make(map[string]*operation),
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()
	log.Debug("websocket connected", "remote", r.RemoteAddr)

	c.initTimer = time.AfterFunc(s.opts.InitTimeout, func() {
		if !c.isInitialized() {
			c.closeWith(protocol.CloseInitTimeout, "Connection initialisation timeout")
		}
	})

	go c.writePump()
	go c.readPump()
}

// readPump reads messages from the websocket connection.
func (c *client) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.cancel()
		c.conn.Close()
	}()

	opts := c.server.opts
	c.conn.SetReadDeadline(time.Now().Add(opts.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(opts.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket read error", "err", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(opts.ReadTimeout))

		c.handleMessage(message)
	}
}

// writePump writes queued messages and keepalive pings.
func (c *client) writePump() {
	opts := c.server.opts
	ticker := time.NewTicker(opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("websocket write error", "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeClient forgets a disconnected client. Its operations end with the
// client context.
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()
	c.initTimer.Stop()
	c.log.Debug("websocket disconnected")
}

// closeWith sends a close frame and tears the connection down.
func (c *client) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		if len(reason) > maxCloseReason {
			reason = reason[:maxCloseReason]
		}
		c.log.Info("closing websocket", "code", code, "reason", reason)
		deadline := time.Now().Add(c.server.opts.WriteTimeout)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		c.cancel()
		c.conn.Close()
	})
}

func (c *client) isInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// handleMessage processes one client frame.
func (c *client) handleMessage(raw []byte) {
	msg, err := protocol.ValidateClientMessage(raw)
	if err != nil {
		c.closeWith(protocol.CloseInvalidMessage, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeConnectionInit:
		c.mu.Lock()
		again := c.initialized
		c.initialized = true
		c.mu.Unlock()
		if again {
			c.closeWith(protocol.CloseTooManyInit, "Too many initialisation requests")
			return
		}
		c.initTimer.Stop()
		c.enqueue(protocol.TypeConnectionAck, "", nil)

	case protocol.TypePing:
		var payload interface{}
		if len(msg.Payload) > 0 {
			payload = msg.Payload
		}
		c.enqueue(protocol.TypePong, "", payload)

	case protocol.TypePong:

	case protocol.TypeSubscribe:
		c.handleSubscribe(msg)

	case protocol.TypeComplete:
		c.complete(msg.ID)
	}
}

func (c *client) handleSubscribe(msg *protocol.Message) {
	if !c.isInitialized() {
		c.closeWith(protocol.CloseUnauthorized, "Unauthorized")
		return
	}
	payload, err := protocol.DecodeSubscribe(msg)
	if err != nil {
		c.closeWith(protocol.CloseInvalidMessage, err.Error())
		return
	}

	c.mu.Lock()
	if _, exists := c.ops[msg.ID]; exists {
		c.mu.Unlock()
		c.closeWith(protocol.CloseSubscriberExists, "Subscriber for "+msg.ID+" already exists")
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	op := &operation{cancel: cancel}
	c.ops[msg.ID] = op
	c.mu.Unlock()

	log := c.log.With("op", msg.ID)
	ctx = pslog.ContextWithLogger(ctx, log)
	log.Debug("operation started", "operation", payload.OperationName)

	responses, err := c.server.schema.Subscribe(ctx, payload.Query, payload.OperationName, payload.Variables)
	if err != nil {
		c.release(msg.ID, op)
		c.enqueue(protocol.TypeError, msg.ID, []protocol.ErrorEntry{{Message: err.Error()}})
		return
	}
	go c.stream(ctx, msg.ID, op, responses)
}

// stream forwards operation results. The channel is drained until the
// schema closes it, which it does once ctx ends.
func (c *client) stream(ctx context.Context, id string, op *operation, responses <-chan interface{}) {
	first, failed := true, false
	for v := range responses {
		resp, ok := v.(*graphql.Response)
		if !ok || ctx.Err() != nil {
			continue
		}
		if first && len(resp.Errors) > 0 && isNull(resp.Data) {
			// Rejected before execution: the operation ends with error.
			failed = true
			c.enqueue(protocol.TypeError, id, resp.Errors)
		} else if !failed {
			c.enqueue(protocol.TypeNext, id, resp)
		}
		first = false
	}

	cancelled := ctx.Err() != nil
	c.release(id, op)
	if !cancelled && !failed {
		c.enqueue(protocol.TypeComplete, id, nil)
	}
	pslog.Ctx(ctx).Debug("operation finished", "cancelled", cancelled, "failed", failed)
}

// complete cancels the operation a client completed.
func (c *client) complete(id string) {
	c.mu.Lock()
	op, ok := c.ops[id]
	delete(c.ops, id)
	c.mu.Unlock()
	if ok {
		op.cancel()
	}
}

// release frees id if it still belongs to op, which may already have been
// completed by the client and replaced by a new operation.
func (c *client) release(id string, op *operation) {
	c.mu.Lock()
	if c.ops[id] == op {
		delete(c.ops, id)
	}
	c.mu.Unlock()
	op.cancel()
}

// enqueue queues a message for the write pump. A full queue closes the
// connection.
func (c *client) enqueue(msgType, id string, payload interface{}) bool {
	msg, err := protocol.NewMessage(msgType, id, payload)
	if err != nil {
		c.log.Error("encode message", "type", msgType, "err", err)
		return false
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		c.log.Error("encode message", "type", msgType, "err", err)
		return false
	}

	if c.ctx.Err() != nil {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.log.Warn("send queue overflow", "buffer", cap(c.send))
		c.closeWith(websocket.ClosePolicyViolation, "send queue overflow")
		return false
	}
}

func isNull(data json.RawMessage) bool {
	return len(data) == 0 || string(data) == "null"
}
