package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// Connection wraps a WebSocket with a single writer goroutine fed from
// an outbound queue. WebSocket writes must be serialized; every event
// for this connection funnels through Enqueue.
type Connection struct {
	conn         *websocket.Conn
	queue        *outboundQueue
	writeTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	closeOnce    sync.Once
}

// NewConnection creates the wrapper and starts its writer goroutine.
func NewConnection(conn *websocket.Conn, queueSize int, writeTimeout time.Duration) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:         conn,
		queue:        newOutboundQueue(queueSize),
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	go c.writeLoop()
	return c
}

// Enqueue implements interfaces.EventSink. Never blocks the caller.
func (c *Connection) Enqueue(event *types.Event, droppable bool) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}
	return c.queue.enqueue(event, droppable)
}

// writeLoop is the single writer. It drains the queue in FIFO order, so
// delivery order per connection matches enqueue order.
func (c *Connection) writeLoop() {
	for {
		event, ok := c.queue.next()
		if !ok {
			return
		}

		data, err := json.Marshal(event)
		if err != nil {
			continue // malformed event, skip it
		}
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			c.Close()
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			c.Close()
			return
		}
	}
}

// Close tears the connection down exactly once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.queue.close()
		err = c.conn.Close()
	})
	return err
}

// Done exposes the connection's lifetime for ping tickers.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}
