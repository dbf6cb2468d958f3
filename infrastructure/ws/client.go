package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// errOverflow reports a full send queue under the OverflowClose policy.
var errOverflow = errors.New("send queue overflow")

// Client is one live connection. The hub creates it on a successful
// handshake and is the sole destroyer; the registry only holds references
// while the connection is open.
//
// Writes are serialized through the send queue: writePump is the only
// goroutine touching the socket's send side. Reads are consumed by the
// hub's serve loop.
type Client struct {
	ID          string
	Group       string
	RemoteAddr  string
	ConnectedAt time.Time

	hub  *Hub
	conn *websocket.Conn

	sendMu      sync.Mutex
	send        chan []byte
	closed      bool
	closeCode   int
	closeReason string
	dropped     uint64

	// Flood limiter state, touched only by the reader goroutine.
	limiter *tokenBucket
	limited bool

	teardownOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, clientID, group, remoteAddr string) *Client {
	c := &Client{
		ID:          clientID,
		Group:       group,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now().UTC(),
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, hub.cfg.QueueDepth),
	}
	if hub.cfg.MessageBurst > 0 {
		c.limiter = newTokenBucket(hub.cfg.MessageBurst, hub.cfg.MessageRefill)
	}
	return c
}

// enqueue queues a payload for delivery. It never blocks: with a full
// queue the drop-oldest policy discards the head frame to make room, and
// the close-on-overflow policy returns errOverflow so the hub can
// disconnect the slow consumer.
func (c *Client) enqueue(payload []byte) error {
	if payload == nil {
		return nil
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return ErrClosed
	}

	for {
		select {
		case c.send <- payload:
			return nil
		default:
		}
		if c.hub.cfg.Overflow == OverflowClose {
			return errOverflow
		}
		select {
		case <-c.send:
			c.dropped++
			c.hub.log.Debug("send queue full, dropped oldest frame",
				"clientId", c.ID, "dropped", c.dropped)
		default:
		}
	}
}

// closeSend marks the client closed and closes the queue. The writer keeps
// draining buffered frames, then emits the close frame recorded by
// setCloseStatus. Idempotent.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) setCloseStatus(code int, reason string) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closeCode == 0 {
		c.closeCode = code
		c.closeReason = reason
	}
}

func (c *Client) closeStatus() (int, string) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closeCode == 0 {
		return websocket.CloseNormalClosure, ""
	}
	return c.closeCode, c.closeReason
}

// allowFrame applies the per-client flood limiter to one inbound frame.
// notify is true on the first rejected frame of a depletion so the hub
// reports rate_limited once instead of per dropped frame.
func (c *Client) allowFrame() (ok, notify bool) {
	if c.limiter == nil {
		return true, false
	}
	if c.limiter.allow() {
		c.limited = false
		return true, false
	}
	notify = !c.limited
	c.limited = true
	return false, notify
}

// readPump consumes inbound frames until the socket fails or closes and
// returns the terminating error.
func (c *Client) readPump(onFrame func([]byte)) error {
	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		onFrame(frame)
	}
}

// writePump drains the send queue in FIFO order and keeps the connection
// alive with pings. It owns the socket's send side and closes the socket
// on exit, which also unblocks the reader.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				code, reason := c.closeStatus()
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(code, reason))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.Debug("write failed", "clientId", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
