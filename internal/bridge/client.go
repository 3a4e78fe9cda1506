// Package bridge owns the persistent websocket connection to the host.
//
// Outbound frames go through a FIFO queue that outlives any single
// connection: a frame leaves the queue only after it was written, so frames
// sent while disconnected are flushed in order once the next connection
// opens. Lost connections are retried forever after a fixed delay since the
// host may restart at any time.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/historic-flag-overlay/internal/config"
	"github.com/DoyleJ11/historic-flag-overlay/internal/discovery"
	"github.com/DoyleJ11/historic-flag-overlay/pkg/types"
)

var ErrClosed = errors.New("bridge closed")

type Resolver interface {
	Resolve(ctx context.Context) discovery.Endpoint
}

// Handler receives decoded inbound messages, one at a time, in arrival order.
type Handler func(types.Inbound)

type Client struct {
	resolver Resolver
	cfg      config.Bridge
	log      *zap.Logger
	handler  Handler

	mu               sync.Mutex
	ctx              context.Context
	queue            [][]byte
	conn             *websocket.Conn
	connCancel       context.CancelFunc
	kick             chan struct{}
	dialing          bool
	reconnectPending bool
	closed           bool
}

func NewClient(resolver Resolver, cfg config.Bridge, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		resolver: resolver,
		cfg:      cfg,
		log:      log,
		ctx:      context.Background(),
	}
}

// OnMessage installs the inbound handler. Call before Start.
func (c *Client) OnMessage(h Handler) { c.handler = h }

// Start binds the client to ctx and begins connecting.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.Connect()
}

// Connect dials the host unless a connection is open or already being dialed.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.closed || c.conn != nil || c.dialing {
		c.mu.Unlock()
		return
	}
	c.dialing = true
	ctx := c.ctx
	c.mu.Unlock()

	go c.dial(ctx)
}

// Ready reports whether a connection is currently open.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Pending returns the number of frames waiting to be written.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Send serializes v and queues it. It never blocks on the network.
func (c *Client) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.queue = append(c.queue, data)
	kick := c.kick
	c.mu.Unlock()

	if kick != nil {
		select {
		case kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Close stops reconnecting and closes the current connection. Frames still
// queued are discarded.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn, cancel := c.conn, c.connCancel
	c.conn, c.connCancel, c.kick = nil, nil, nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	cancel()
	return conn.CloseNow()
}

func (c *Client) dial(ctx context.Context) {
	ep := c.resolver.Resolve(ctx)

	dctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	conn, _, err := websocket.Dial(dctx, ep.URL(), nil)
	cancel()

	c.mu.Lock()
	c.dialing = false
	if err != nil {
		c.mu.Unlock()
		c.log.Debug("bridge dial failed", zap.String("url", ep.URL()), zap.Error(err))
		c.scheduleReconnect()
		return
	}
	if c.closed {
		c.mu.Unlock()
		_ = conn.CloseNow()
		return
	}

	connCtx, connCancel := context.WithCancel(ctx)
	kick := make(chan struct{}, 1)
	c.conn, c.connCancel, c.kick = conn, connCancel, kick
	queued := len(c.queue)
	c.mu.Unlock()

	c.log.Info("bridge connected", zap.String("url", ep.URL()), zap.Int("queued", queued))
	go c.readLoop(connCtx, conn)
	go c.writeLoop(connCtx, conn, kick)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.drop(conn, err)
			return
		}

		msg, err := types.DecodeInbound(data)
		if err != nil {
			c.log.Warn("dropping inbound message", zap.Error(err), zap.Int("bytes", len(data)))
			continue
		}
		if c.handler != nil {
			c.handler(msg)
		}
	}
}

// writeLoop drains the queue head-first. A frame is popped only after its
// write succeeded on the connection that is still current.
func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn, kick <-chan struct{}) {
	for {
		for {
			c.mu.Lock()
			if c.conn != conn {
				c.mu.Unlock()
				return
			}
			if len(c.queue) == 0 {
				c.mu.Unlock()
				break
			}
			frame := c.queue[0]
			c.mu.Unlock()

			wctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				c.drop(conn, err)
				return
			}

			c.mu.Lock()
			if c.conn == conn && len(c.queue) > 0 {
				c.queue[0] = nil
				c.queue = c.queue[1:]
			}
			c.mu.Unlock()
		}

		select {
		case <-ctx.Done():
			return
		case <-kick:
		}
	}
}

// drop retires conn if it is still current and schedules one reconnect.
func (c *Client) drop(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	cancel := c.connCancel
	c.conn, c.connCancel, c.kick = nil, nil, nil
	c.mu.Unlock()

	cancel()
	_ = conn.CloseNow()

	switch websocket.CloseStatus(cause) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		c.log.Info("bridge closed by host")
	default:
		c.log.Warn("bridge connection lost", zap.Error(cause))
	}
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || c.reconnectPending || c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.reconnectPending = true
	c.mu.Unlock()

	time.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.mu.Lock()
		c.reconnectPending = false
		c.mu.Unlock()
		c.Connect()
	})
}
