package ratelimit

import (
	"context"
	"testing"
	"time"

	"scholarhub/infrastructure/cache"
)

func TestMemoryLimiterEnforcesLimit(t *testing.T) {
	mc := cache.NewMemCache(0)
	defer mc.Close()

	l := NewMemoryLimiter(mc, Config{Limit: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "10.0.0.1") {
			t.Fatalf("attempt %d refused, want admitted", i+1)
		}
	}
	if l.Allow(ctx, "10.0.0.1") {
		t.Error("attempt over limit admitted, want refused")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	mc := cache.NewMemCache(0)
	defer mc.Close()

	l := NewMemoryLimiter(mc, Config{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	if !l.Allow(ctx, "10.0.0.1") {
		t.Fatal("first key refused")
	}
	if !l.Allow(ctx, "10.0.0.2") {
		t.Error("second key refused, limits should be per key")
	}
}

func TestMemoryLimiterWindowResets(t *testing.T) {
	mc := cache.NewMemCache(0)
	defer mc.Close()

	l := NewMemoryLimiter(mc, Config{Limit: 1, Window: 10 * time.Millisecond})
	ctx := context.Background()

	if !l.Allow(ctx, "10.0.0.1") {
		t.Fatal("first attempt refused")
	}
	if l.Allow(ctx, "10.0.0.1") {
		t.Fatal("second attempt admitted inside window")
	}

	time.Sleep(20 * time.Millisecond)
	if !l.Allow(ctx, "10.0.0.1") {
		t.Error("attempt after window refused, want admitted")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.Limit != 30 {
		t.Errorf("Limit = %d, want 30", cfg.Limit)
	}
	if cfg.Window != time.Minute {
		t.Errorf("Window = %v, want 1m", cfg.Window)
	}
}

func TestNoopAlwaysAdmits(t *testing.T) {
	var l Limiter = Noop{}
	for i := 0; i < 100; i++ {
		if !l.Allow(context.Background(), "anyone") {
			t.Fatal("Noop refused an attempt")
		}
	}
}
