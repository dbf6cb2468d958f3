package ws

import (
	"errors"
	"testing"
	"time"
)

func drainQueue(c *Client) []string {
	var out []string
	for {
		select {
		case payload := <-c.send:
			out = append(out, string(payload))
		default:
			return out
		}
	}
}

func TestEnqueueDropOldest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueDepth = 4
	h := testHub(cfg)
	c := testClient(h, "1", "")

	for _, payload := range []string{"a", "b", "c", "d", "e", "f"} {
		if err := c.enqueue([]byte(payload)); err != nil {
			t.Fatalf("enqueue(%q) error: %v", payload, err)
		}
	}

	// With depth 4 and 6 sends, exactly the last 4 frames remain, in order.
	got := drainQueue(c)
	want := []string{"c", "d", "e", "f"}
	if len(got) != len(want) {
		t.Fatalf("queue holds %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("queue holds %v, want %v", got, want)
		}
	}
	if c.dropped != 2 {
		t.Errorf("dropped = %d, want 2", c.dropped)
	}
}

func TestEnqueueCloseOnOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueDepth = 2
	cfg.Overflow = OverflowClose
	h := testHub(cfg)
	c := testClient(h, "1", "")

	if err := c.enqueue([]byte("a")); err != nil {
		t.Fatalf("enqueue error: %v", err)
	}
	if err := c.enqueue([]byte("b")); err != nil {
		t.Fatalf("enqueue error: %v", err)
	}
	if err := c.enqueue([]byte("c")); !errors.Is(err, errOverflow) {
		t.Fatalf("enqueue(over depth) error = %v, want errOverflow", err)
	}

	got := drainQueue(c)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("queue holds %v, want [a b]", got)
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	h := testHub(DefaultConfig())
	c := testClient(h, "1", "")

	c.closeSend()
	if err := c.enqueue([]byte("late")); !errors.Is(err, ErrClosed) {
		t.Fatalf("enqueue(closed) error = %v, want ErrClosed", err)
	}
	// Idempotent.
	c.closeSend()
}

func TestCloseStatusDefaultsToNormalClosure(t *testing.T) {
	h := testHub(DefaultConfig())
	c := testClient(h, "1", "")

	code, _ := c.closeStatus()
	if code != 1000 {
		t.Errorf("closeStatus() code = %d, want 1000", code)
	}

	c.setCloseStatus(1001, "server shutting down")
	c.setCloseStatus(1011, "later status must not win")

	code, reason := c.closeStatus()
	if code != 1001 || reason != "server shutting down" {
		t.Errorf("closeStatus() = %d %q, want 1001 with the first reason", code, reason)
	}
}

func TestTokenBucket(t *testing.T) {
	b := newTokenBucket(2, 100*time.Millisecond)

	if !b.allow() || !b.allow() {
		t.Fatal("bucket refused frames within the burst")
	}
	if b.allow() {
		t.Fatal("bucket allowed a frame beyond the burst")
	}

	time.Sleep(120 * time.Millisecond)
	if !b.allow() {
		t.Fatal("bucket did not refill after the interval")
	}
}

func TestAllowFrameNotifiesOnce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MessageBurst = 1
	cfg.MessageRefill = time.Minute
	h := testHub(cfg)
	c := testClient(h, "1", "")

	if ok, _ := c.allowFrame(); !ok {
		t.Fatal("first frame refused")
	}
	if ok, notify := c.allowFrame(); ok || !notify {
		t.Fatalf("second frame: ok=%v notify=%v, want refused with notify", ok, notify)
	}
	if ok, notify := c.allowFrame(); ok || notify {
		t.Fatalf("third frame: ok=%v notify=%v, want refused without notify", ok, notify)
	}
}
