package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DeliveryStatus is the outcome of a server-originated send.
type DeliveryStatus string

const (
	StatusDelivered DeliveryStatus = "delivered"
	StatusNotFound  DeliveryStatus = "not_found"
	StatusClosed    DeliveryStatus = "closed"
)

// Hub owns the client registry and routes frames between connections.
// It is an explicit value constructed at startup and passed to the HTTP
// layer, so several independent hubs can coexist in one process.
type Hub struct {
	cfg      Config
	log      *slog.Logger
	registry *Registry
	wg       sync.WaitGroup

	cbMu         sync.RWMutex
	onRegister   func(*Client) error
	onUnregister func(*Client) error
}

// New creates a hub with the given configuration. A nil logger falls back
// to slog.Default.
func New(cfg Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		cfg:      cfg.withDefaults(),
		log:      logger,
		registry: NewRegistry(),
	}
}

// SetOnClientRegister installs a callback invoked after a client enters
// the registry. Errors are logged, never fatal for the connection.
func (h *Hub) SetOnClientRegister(cb func(*Client) error) {
	h.cbMu.Lock()
	h.onRegister = cb
	h.cbMu.Unlock()
}

// SetOnClientUnregister installs a callback invoked after a client leaves
// the registry.
func (h *Hub) SetOnClientUnregister(cb func(*Client) error) {
	h.cbMu.Lock()
	h.onUnregister = cb
	h.cbMu.Unlock()
}

func (h *Hub) registerCallback() func(*Client) error {
	h.cbMu.RLock()
	defer h.cbMu.RUnlock()
	return h.onRegister
}

func (h *Hub) unregisterCallback() func(*Client) error {
	h.cbMu.RLock()
	defer h.cbMu.RUnlock()
	return h.onUnregister
}

// ValidID reports whether a client-supplied identifier passes the
// configured admissibility predicate.
func (h *Hub) ValidID(clientID string) bool {
	return h.cfg.IDPattern.MatchString(clientID)
}

// ServeConn runs the full lifecycle of one upgraded connection: admission,
// registration, welcome/joined notices, the read loop, and teardown. An
// empty clientID asks the hub to synthesize one; a non-empty id must pass
// the admissibility predicate. ServeConn blocks until the connection ends.
func (h *Hub) ServeConn(conn *websocket.Conn, clientID, group, remoteAddr string) {
	if clientID == "" {
		clientID = uuid.New().String()
	} else if !h.ValidID(clientID) {
		h.reject(conn, errInvalidClientID, websocket.ClosePolicyViolation)
		return
	}

	c := newClient(h, conn, clientID, group, remoteAddr)
	if err := h.registry.Register(c, h.cfg.MaxConnections); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateID):
			h.reject(conn, errDuplicateClientID, websocket.ClosePolicyViolation)
		case errors.Is(err, ErrHubFull):
			h.reject(conn, errOverloaded, websocket.CloseTryAgainLater)
		}
		return
	}
	h.log.Info("client connected",
		"clientId", c.ID, "group", c.Group,
		"remoteAddr", c.RemoteAddr, "clients", h.registry.Count())

	if cb := h.registerCallback(); cb != nil {
		if err := cb(c); err != nil {
			h.log.Error("register callback failed", "clientId", c.ID, "err", err)
		}
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()

	_ = c.enqueue(marshalFrame(presenceEvent{Event: eventWelcome, ClientID: c.ID, Group: c.Group}))
	h.notifyPeers(c, eventJoined)

	err := c.readPump(func(frame []byte) {
		h.dispatch(c, frame)
	})

	code := websocket.CloseNormalClosure
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		h.log.Warn("read failed", "clientId", c.ID, "err", err)
		code = websocket.CloseInternalServerErr
	}
	h.teardown(c, code, "")
}

// reject answers a refused handshake: one error frame, then a close frame.
// The connection was never registered.
func (h *Hub) reject(conn *websocket.Conn, kind string, code int) {
	deadline := time.Now().Add(h.cfg.WriteTimeout)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.WriteMessage(websocket.TextMessage, marshalFrame(errorFrame{Error: kind}))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, kind), deadline)
	_ = conn.Close()
	h.log.Info("connection rejected", "reason", kind, "remoteAddr", conn.RemoteAddr().String())
}

// teardown removes the client from the registry, notifies its peers and
// closes the queue so the writer drains and emits the close frame.
// Safe to call from any goroutine; only the first call acts.
func (h *Hub) teardown(c *Client, code int, reason string) {
	c.teardownOnce.Do(func() {
		h.registry.Unregister(c.ID)
		h.notifyPeers(c, eventLeft)

		if cb := h.unregisterCallback(); cb != nil {
			if err := cb(c); err != nil {
				h.log.Error("unregister callback failed", "clientId", c.ID, "err", err)
			}
		}

		c.setCloseStatus(code, reason)
		c.closeSend()
		h.log.Info("client disconnected",
			"clientId", c.ID, "group", c.Group, "clients", h.registry.Count())
	})
}

// notifyPeers emits a joined/left event for c to its group, or hub-wide
// when c has no group. The subject itself is excluded.
func (h *Hub) notifyPeers(c *Client, event string) {
	var peers []*Client
	if c.Group != "" {
		peers = h.registry.GroupMembers(c.Group)
	} else {
		peers = h.registry.Snapshot()
	}

	payload := marshalFrame(presenceEvent{Event: event, ClientID: c.ID, Group: c.Group})
	for _, peer := range peers {
		if peer == c {
			continue
		}
		_ = h.deliver(peer, payload)
	}
}

// dispatch routes one inbound frame from c to its destination set.
func (h *Hub) dispatch(c *Client, frame []byte) {
	ok, notify := c.allowFrame()
	if !ok {
		if notify {
			h.log.Warn("client flooding, dropping frames", "clientId", c.ID)
			_ = c.enqueue(marshalFrame(errorFrame{Error: errRateLimited}))
		}
		return
	}

	cmd := ParseCommand(frame)
	switch cmd.Kind {
	case CommandDirect:
		h.sendDirect(c, cmd.Target, cmd.Body)
	case CommandGroup:
		h.fanOut(c, cmd.Body)
	case CommandBroadcast:
		if h.cfg.AllowBroadcast {
			h.broadcastFrom(c, cmd.Body)
		} else {
			h.fanOut(c, cmd.Body)
		}
	default:
		h.fanOut(c, cmd.Body)
	}
}

// sendDirect delivers a /send_to frame: the body to the target, an ack to
// the sender, or a not_found error when the target is absent.
func (h *Hub) sendDirect(sender *Client, targetID, body string) {
	target, ok := h.registry.Lookup(targetID)
	if !ok {
		_ = sender.enqueue(marshalFrame(errorFrame{Error: errTargetNotFound, Target: targetID}))
		return
	}
	_ = h.deliver(target, marshalFrame(messageFrame{From: sender.ID, Body: body}))
	_ = sender.enqueue(marshalFrame(ackFrame{Ack: true, Target: targetID}))
}

// fanOut delivers a frame to the sender's group, excluding the sender.
// An ungrouped sender gets a self-echo instead.
func (h *Hub) fanOut(sender *Client, body string) {
	payload := marshalFrame(messageFrame{From: sender.ID, Body: body})
	if sender.Group == "" {
		_ = sender.enqueue(payload)
		return
	}
	for _, peer := range h.registry.GroupMembers(sender.Group) {
		if peer == sender {
			continue
		}
		_ = h.deliver(peer, payload)
	}
}

// broadcastFrom fans a privileged /broadcast frame out to every connection.
func (h *Hub) broadcastFrom(sender *Client, body string) {
	payload := marshalFrame(messageFrame{From: sender.ID, Body: body})
	for _, peer := range h.registry.Snapshot() {
		_ = h.deliver(peer, payload)
	}
}

// deliver enqueues on a target and applies the overflow policy: under
// close-on-overflow the slow consumer is disconnected with 1013.
func (h *Hub) deliver(target *Client, payload []byte) error {
	err := target.enqueue(payload)
	if errors.Is(err, errOverflow) {
		h.log.Warn("send queue overflow, closing slow client", "clientId", target.ID)
		h.teardown(target, websocket.CloseTryAgainLater, "slow consumer")
	}
	return err
}

// Clients returns a snapshot of the connected clients.
func (h *Hub) Clients() []ClientInfo {
	return h.registry.ListAll()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	return h.registry.Count()
}

// SendToClient injects a server-originated message toward one client.
func (h *Hub) SendToClient(clientID, body string) DeliveryStatus {
	target, ok := h.registry.Lookup(clientID)
	if !ok {
		return StatusNotFound
	}
	err := h.deliver(target, marshalFrame(messageFrame{From: serverSender, Body: body}))
	if err != nil {
		return StatusClosed
	}
	return StatusDelivered
}

// SendToGroup injects a server-originated message toward every member of
// a group and returns the number of clients it was enqueued for.
func (h *Hub) SendToGroup(group, body string) int {
	payload := marshalFrame(messageFrame{From: serverSender, Body: body})
	delivered := 0
	for _, peer := range h.registry.GroupMembers(group) {
		if h.deliver(peer, payload) == nil {
			delivered++
		}
	}
	return delivered
}

// Broadcast injects a server-originated message toward every connection.
func (h *Hub) Broadcast(body string) int {
	payload := marshalFrame(messageFrame{From: serverSender, Body: body})
	delivered := 0
	for _, peer := range h.registry.Snapshot() {
		if h.deliver(peer, payload) == nil {
			delivered++
		}
	}
	return delivered
}

// Disconnect evicts a client. It returns once the client has left the
// registry; the socket finishes closing asynchronously after the writer
// drains.
func (h *Hub) Disconnect(clientID, reason string) bool {
	c, ok := h.registry.Lookup(clientID)
	if !ok {
		return false
	}
	h.teardown(c, websocket.CloseNormalClosure, reason)
	return true
}

// Shutdown evicts every client with close code 1001 and waits up to the
// timeout for the writers to drain.
func (h *Hub) Shutdown(timeout time.Duration) error {
	clients := h.registry.Snapshot()
	h.log.Info("shutting down hub", "clients", len(clients))
	for _, c := range clients {
		h.teardown(c, websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timed out", "timeout", timeout)
		return context.DeadlineExceeded
	}
}
