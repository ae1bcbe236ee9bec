package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/majinxin2003/IDArling/internal/event"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second

	// DefaultSendQueue is the outbound queue length when none is configured.
	DefaultSendQueue = 256
)

// Client is a relay connection. All methods are safe for concurrent use.
type Client struct {
	conn         *websocket.Conn
	ids          IDGenerator
	logger       *slog.Logger
	queryTimeout time.Duration
	handler      func(Envelope)

	out  chan []byte
	done chan struct{}

	mu      sync.Mutex
	pending map[string]*pendingQuery
	closed  bool
	err     error
}

type pendingQuery struct {
	typ     PacketType
	resolve func(Envelope)
	reject  func(error)
	timer   *time.Timer
}

// Option configures a Client.
type Option func(*Client)

// WithQueryTimeout rejects queries with ErrQueryTimeout after d. Zero waits
// indefinitely.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Client) { c.queryTimeout = d }
}

// WithSendQueue sets the outbound queue length.
func WithSendQueue(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.out = make(chan []byte, n)
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithIDGenerator sets the request ID source.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Client) { c.ids = g }
}

// WithHandler receives envelopes that are not replies to a pending query,
// such as events broadcast by other participants. It runs on the read loop.
func WithHandler(h func(Envelope)) Option {
	return func(c *Client) { c.handler = h }
}

// Dial connects to the relay at url.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}
	return NewClient(conn, opts...), nil
}

// NewClient takes ownership of conn and starts its read and write loops.
func NewClient(conn *websocket.Conn, opts ...Option) *Client {
	c := &Client{
		conn:    conn,
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
		out:     make(chan []byte, DefaultSendQueue),
		done:    make(chan struct{}),
		pending: make(map[string]*pendingQuery),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.writeLoop()
	go c.readLoop()
	return c
}

// ListDatabases queries the databases registered under project.
func (c *Client) ListDatabases(project string) *Reply[[]Database] {
	reply := NewReply[[]Database]()
	c.query(ListDatabases{Project: project},
		func(env Envelope) {
			r, err := Decode[ListDatabasesReply](env)
			if err != nil {
				reply.Reject(err)
				return
			}
			reply.Resolve(r.Databases)
		},
		func(err error) { reply.Reject(err) },
	)
	return reply
}

func (c *Client) query(p Packet, resolve func(Envelope), reject func(error)) {
	id := c.ids.Generate()
	data, err := Marshal(id, p)
	if err != nil {
		reject(err)
		return
	}

	q := &pendingQuery{typ: p.Type(), resolve: resolve, reject: reject}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		reject(fmt.Errorf("%s: %w", p.Type(), ErrClosed))
		return
	}
	c.pending[id] = q
	if c.queryTimeout > 0 {
		q.timer = time.AfterFunc(c.queryTimeout, func() {
			if c.take(id) != nil {
				reject(fmt.Errorf("%s %s after %s: %w", p.Type(), id, c.queryTimeout, ErrQueryTimeout))
			}
		})
	}
	c.mu.Unlock()

	if err := c.enqueue(data); err != nil {
		if c.take(id) != nil {
			reject(fmt.Errorf("%s: %w", p.Type(), err))
		}
	}
}

// take removes and returns the pending query id, or nil if it already
// settled.
func (c *Client) take(id string) *pendingQuery {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.pending[id]
	if !ok {
		return nil
	}
	delete(c.pending, id)
	if q.timer != nil {
		q.timer.Stop()
	}
	return q
}

// Send queues p without waiting for the network.
func (c *Client) Send(p Packet) error {
	data, err := Marshal("", p)
	if err != nil {
		return err
	}
	if err := c.enqueue(data); err != nil {
		return fmt.Errorf("send %s: %w", p.Type(), err)
	}
	return nil
}

// SendEvent queues e as an EventPacket.
func (c *Client) SendEvent(e event.Event) error {
	p, err := NewEventPacket(e)
	if err != nil {
		return err
	}
	return c.Send(p)
}

func (c *Client) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	select {
	case c.out <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, or nil while it is open.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close shuts the connection and rejects pending queries with ErrClosed.
func (c *Client) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

func (c *Client) shutdown(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.err = cause
	pending := c.pending
	c.pending = make(map[string]*pendingQuery)
	close(c.done)
	c.mu.Unlock()

	c.conn.Close()

	for id, q := range pending {
		if q.timer != nil {
			q.timer.Stop()
		}
		q.reject(fmt.Errorf("%s %s: %w", q.typ, id, ErrClosed))
	}
}

// writeLoop is the only writer on conn.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("relay write failed", "error", err)
				c.shutdown(fmt.Errorf("write: %w", err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown(fmt.Errorf("ping: %w", err))
				return
			}
		}
	}
}

func (c *Client) readLoop() {
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(fmt.Errorf("read: %w", err))
			return
		}

		env, err := Unmarshal(data)
		if err != nil {
			c.logger.Warn("relay sent malformed envelope", "error", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	if env.ID != "" {
		if q := c.take(env.ID); q != nil {
			if env.Error != "" {
				q.reject(&RemoteError{Type: q.typ, Message: env.Error})
				return
			}
			q.resolve(env)
			return
		}
	}

	if c.handler != nil {
		c.handler(env)
		return
	}
	c.logger.Debug("relay envelope ignored", "type", env.Type, "id", env.ID)
}
