package cache

import (
	"context"
	"testing"
	"time"
)

func TestDisabledCacheMisses(t *testing.T) {
	c := NewDashboardCache(nil, 0)
	if c.Enabled() {
		t.Fatal("cache without client should be disabled")
	}
	if c.ttl != time.Minute {
		t.Errorf("default ttl = %v, want 1m", c.ttl)
	}

	ctx := context.Background()
	if err := c.Set(ctx, "summary", map[string]int{"a": 1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	var out map[string]int
	found, err := c.Get(ctx, "summary", &out)
	if err != nil || found {
		t.Fatalf("Get() = %v, %v; want miss", found, err)
	}
	if err := c.Publish(ctx, nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	var nilCache *DashboardCache
	if nilCache.Enabled() {
		t.Error("nil cache should be disabled")
	}
}
