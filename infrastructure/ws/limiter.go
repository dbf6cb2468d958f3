package ws

import (
	"sync"
	"time"
)

// tokenBucket throttles inbound frames per client. Capacity tokens refill
// continuously over the refill interval.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // tokens per second
	last     time.Time
}

func newTokenBucket(capacity int, refill time.Duration) *tokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	if refill <= 0 {
		refill = time.Second
	}
	return &tokenBucket{
		tokens:   float64(capacity),
		capacity: float64(capacity),
		rate:     float64(capacity) / refill.Seconds(),
		last:     time.Now(),
	}
}

func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.last).Seconds()
	b.last = now

	if elapsed > 0 {
		b.tokens += elapsed * b.rate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
