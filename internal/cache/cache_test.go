package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(16, time.Hour)

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string stored raw", "processing", "processing"},
		{"bytes stored raw", []byte("raw"), "raw"},
		{"map stored as json", map[string]any{"output": "hi"}, `{"output":"hi"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Set(ctx, tt.name, tt.value, time.Minute); err != nil {
				t.Fatalf("Set() error: %v", err)
			}
			got, ok, err := c.Get(ctx, tt.name)
			if err != nil || !ok {
				t.Fatalf("Get() = (_, %v, %v), want hit", ok, err)
			}
			if string(got) != tt.want {
				t.Errorf("Get() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemoryCache_Miss(t *testing.T) {
	c := NewMemoryCache(16, time.Hour)

	got, ok, err := c.Get(context.Background(), "absent")
	if got != nil || ok || err != nil {
		t.Errorf("Get(absent) = (%v, %v, %v), want (nil, false, nil)", got, ok, err)
	}
}

func TestMemoryCache_PerEntryTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(16, time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set(ctx, "short", "v", time.Minute)
	c.Set(ctx, "long", "v", 30*time.Minute)

	now = now.Add(2 * time.Minute)

	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Error("short entry should have expired")
	}
	if _, ok, _ := c.Get(ctx, "long"); !ok {
		t.Error("long entry should still be present")
	}
}

func TestMemoryCache_DeleteAndClose(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(16, time.Hour)

	c.Set(ctx, "k", "v", 0)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("deleted key still present")
	}

	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping() = %v, want nil", err)
	}
	c.Close()
	if err := c.Ping(ctx); err != ErrClosed {
		t.Errorf("Ping() after Close = %v, want ErrClosed", err)
	}
	if err := c.Set(ctx, "k", "v", 0); err != ErrClosed {
		t.Errorf("Set() after Close = %v, want ErrClosed", err)
	}
}

func TestMemoryCache_Eviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Hour)

	c.Set(ctx, "a", "1", 0)
	c.Set(ctx, "b", "2", 0)
	c.Set(ctx, "c", "3", 0)

	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("oldest key should have been evicted")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}
