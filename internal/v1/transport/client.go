// Package transport runs the websocket surface: handshake, identity
// resolution, the read/write pumps, and request routing into the engine.
package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quickmate/server/internal/v1/engine"
	"github.com/quickmate/server/internal/v1/logging"
	"github.com/quickmate/server/internal/v1/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// sendBuffer is the per-connection outbound queue. A client that
	// cannot drain it is dropped rather than allowed to stall the room.
	sendBuffer = 64
)

// Client is one websocket connection bound to a resolved identity.
type Client struct {
	caller        engine.Caller
	reconnectable bool

	conn   *websocket.Conn
	engine *engine.Engine
	send   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn *websocket.Conn, eng *engine.Engine, caller engine.Caller, reconnectable bool) *Client {
	return &Client{
		caller:        caller,
		reconnectable: reconnectable,
		conn:          conn,
		engine:        eng,
		send:          make(chan []byte, sendBuffer),
		done:          make(chan struct{}),
	}
}

// Deliver implements events.Sink. Enqueue only; if the buffer is full
// the client is closed as a slow consumer so room fan-out never blocks.
func (c *Client) Deliver(ev wire.ServerEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	case <-c.done:
	default:
		logging.Warn(context.Background(), "dropping slow client",
			zap.String("connection_id", c.caller.ConnID),
			zap.String("identity", c.caller.Identity))
		c.close()
	}
}

func (c *Client) enqueue(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	case <-c.done:
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump consumes requests until the connection dies. It runs on the
// handler goroutine; returning triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug(ctx, "websocket read error",
					zap.String("connection_id", c.caller.ConnID), zap.Error(err))
			}
			return
		}

		var env wire.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			// No requestId to ack against; push the error instead.
			c.enqueue(wire.ErrorEvent(wire.NewError(wire.CodeValidationFailed, "malformed request frame")))
			continue
		}
		c.enqueue(c.dispatch(ctx, env))
	}
}

// writePump flushes the send queue and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
