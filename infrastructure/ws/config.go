package ws

import (
	"regexp"
	"time"
)

// OverflowPolicy decides what happens when a client's send queue is full.
type OverflowPolicy string

const (
	// OverflowDropOldest discards the oldest queued frame to make room.
	// The hub favors liveness of the real-time path over completeness.
	OverflowDropOldest OverflowPolicy = "drop_oldest"
	// OverflowClose disconnects the slow client with close code 1013.
	OverflowClose OverflowPolicy = "close"
)

// Config holds the tunables of a Hub instance.
type Config struct {
	// QueueDepth bounds each client's send queue.
	QueueDepth int
	// MaxConnections caps the number of simultaneously open clients.
	// Zero means unlimited.
	MaxConnections int
	// AllowBroadcast enables the /broadcast command for ordinary clients.
	// Disabled broadcasts are handled like plain frames.
	AllowBroadcast bool
	// IDPattern is the admissibility predicate applied to client-supplied
	// identifiers on the typed endpoints. Synthesized ids bypass it.
	IDPattern *regexp.Regexp

	Overflow OverflowPolicy

	MaxMessageSize int64
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	PingInterval   time.Duration
	// DrainGrace bounds how long Shutdown waits for writers to drain.
	DrainGrace time.Duration

	// MessageBurst / MessageRefill configure the per-client flood
	// limiter. A non-positive burst disables it.
	MessageBurst  int
	MessageRefill time.Duration
}

var defaultIDPattern = regexp.MustCompile(`^[0-9]+$`)

// DefaultConfig returns the reference settings for a Hub.
func DefaultConfig() Config {
	return Config{
		QueueDepth:     64,
		MaxConnections: 0,
		AllowBroadcast: false,
		IDPattern:      defaultIDPattern,
		Overflow:       OverflowDropOldest,
		MaxMessageSize: 4096,
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		PingInterval:   54 * time.Second,
		DrainGrace:     5 * time.Second,
		MessageBurst:   0,
		MessageRefill:  time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.QueueDepth <= 0 {
		c.QueueDepth = def.QueueDepth
	}
	if c.IDPattern == nil {
		c.IDPattern = def.IDPattern
	}
	if c.Overflow != OverflowDropOldest && c.Overflow != OverflowClose {
		c.Overflow = def.Overflow
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = def.PongTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.DrainGrace <= 0 {
		c.DrainGrace = def.DrainGrace
	}
	if c.MessageRefill <= 0 {
		c.MessageRefill = def.MessageRefill
	}
	return c
}
