package cache

import (
	"context"
	"testing"
	"time"

	"github.com/mohammad-safakhou/wayfarer/config"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatal("expected miss for unknown key")
	}

	c.Set(ctx, "k", "v", time.Minute)
	got, ok := c.Get(ctx, "k")
	if !ok || got != "v" {
		t.Fatalf("got %q, %v", got, ok)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	c.Set(ctx, "k", "v", time.Nanosecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected entry to expire")
	}

	// zero TTL means no expiry
	c.Set(ctx, "forever", "v", 0)
	if _, ok := c.Get(ctx, "forever"); !ok {
		t.Fatal("zero-TTL entry should not expire")
	}
}

func TestNewFallsBackToMemory(t *testing.T) {
	c := New(config.CacheConfig{Enabled: false})
	if _, ok := c.(*memoryCache); !ok {
		t.Fatalf("expected memory cache, got %T", c)
	}
}
