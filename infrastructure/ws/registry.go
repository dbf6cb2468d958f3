package ws

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrDuplicateID is returned when a client id is already registered.
	ErrDuplicateID = errors.New("client id already registered")
	// ErrHubFull is returned when the connection cap is reached.
	ErrHubFull = errors.New("connection limit reached")
	// ErrClosed is returned when enqueueing on a torn-down client.
	ErrClosed = errors.New("client connection closed")
)

// ClientInfo is the registry's public view of one connected client.
type ClientInfo struct {
	ClientID    string    `json:"clientId"`
	Group       string    `json:"group,omitempty"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// Registry maintains the id and group indexes of connected clients.
// The two maps are joined on the client id so no pointer cycles exist:
// byGroup holds ids, byID resolves them.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]*Client
	byGroup map[string]map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[string]*Client),
		byGroup: make(map[string]map[string]struct{}),
	}
}

// Register inserts the client. A duplicate id is a rejection, not a
// replacement: the registry is left untouched and ErrDuplicateID returned.
// A positive max caps the total number of registered clients; the check is
// atomic with the insertion so concurrent handshakes cannot overshoot.
func (r *Registry) Register(c *Client, max int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if max > 0 && len(r.byID) >= max {
		return ErrHubFull
	}
	if _, exists := r.byID[c.ID]; exists {
		return ErrDuplicateID
	}
	r.byID[c.ID] = c
	if c.Group != "" {
		members, ok := r.byGroup[c.Group]
		if !ok {
			members = make(map[string]struct{})
			r.byGroup[c.Group] = members
		}
		members[c.ID] = struct{}{}
	}
	return nil
}

// Unregister removes the id from both indexes and returns the removed
// client, or nil when the id was not registered.
func (r *Registry) Unregister(clientID string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[clientID]
	if !ok {
		return nil
	}
	delete(r.byID, clientID)
	if c.Group != "" {
		if members, ok := r.byGroup[c.Group]; ok {
			delete(members, clientID)
			if len(members) == 0 {
				delete(r.byGroup, c.Group)
			}
		}
	}
	return c
}

// Lookup resolves a client id.
func (r *Registry) Lookup(clientID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[clientID]
	return c, ok
}

// GroupMembers returns a point-in-time snapshot of the group's clients so
// callers can enqueue without holding the registry lock.
func (r *Registry) GroupMembers(group string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.byGroup[group]
	out := make([]*Client, 0, len(members))
	for id := range members {
		if c, ok := r.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Snapshot returns all connected clients.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}

// ListAll returns the info records of every connected client.
func (r *Registry) ListAll() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ClientInfo, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, ClientInfo{
			ClientID:    c.ID,
			Group:       c.Group,
			ConnectedAt: c.ConnectedAt,
		})
	}
	return out
}

// Count returns the number of connected clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
