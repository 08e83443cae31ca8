package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-hub/domain"
	"chat-hub/domain/event"
)

const maxFrameSize = 1 << 20 // 1MB

// client is one upgraded socket. Writes go through a buffered channel
// drained by a single write pump, so concurrent fan-outs never interleave
// frames on the wire.
type client struct {
	id   domain.ConnectionID
	user domain.User
	conn *websocket.Conn
	send chan event.Envelope
	log  *slog.Logger

	writeTimeout time.Duration
	pingInterval time.Duration
	pongWait     time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(id domain.ConnectionID, user domain.User, conn *websocket.Conn,
	log *slog.Logger, buffer int, writeTimeout, pingInterval time.Duration) *client {
	return &client{
		id:           id,
		user:         user,
		conn:         conn,
		send:         make(chan event.Envelope, buffer),
		log:          log,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		pongWait:     2 * pingInterval,
		done:         make(chan struct{}),
	}
}

// enqueue hands an event to the write pump without blocking. A full
// buffer or a closed connection drops the event and reports false.
func (c *client) enqueue(evt event.Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- evt:
		return true
	default:
		return false
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case evt := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteJSON(evt); err != nil {
				c.log.Debug("write failed, closing connection", "connection", c.id, "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(c.writeTimeout)); err != nil {
				c.close()
				return
			}
		}
	}
}

// readLoop blocks on the socket and dispatches decoded frames until the
// peer goes away.
func (c *client) readLoop(dispatch func(raw inboundFrame)) {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.enqueue(event.NewError("malformed frame"))
			continue
		}
		dispatch(frame)
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// inboundFrame is the client-to-server command envelope.
type inboundFrame struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}
