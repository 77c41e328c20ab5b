package cache

import (
	"context"
	"testing"
	"time"
)

func TestCache_GetSetExpiry(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](0)
	defer c.Close()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "fee", 42, time.Second)
	c.Set(ctx, "static", 7, 0)

	if v, ok := c.Get(ctx, "fee"); !ok || v != 42 {
		t.Fatalf("Get(fee) = %d, %v", v, ok)
	}

	now = now.Add(2 * time.Second)

	if _, ok := c.Get(ctx, "fee"); ok {
		t.Error("fee should have expired")
	}
	if v, ok := c.Get(ctx, "static"); !ok || v != 7 {
		t.Errorf("Get(static) = %d, %v; zero ttl should never expire", v, ok)
	}

	c.evict()
	if c.Len() != 1 {
		t.Errorf("Len after evict = %d, want 1", c.Len())
	}
}

func TestCache_DeleteAndClose(t *testing.T) {
	ctx := context.Background()
	c := New[string, string](time.Millisecond)

	c.Set(ctx, "k", "v", time.Minute)
	c.Delete(ctx, "k")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("deleted key still present")
	}

	c.Close()
	c.Close()
}
