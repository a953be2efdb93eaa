package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/mmynk/rollcall/internal/clock"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := NewMemory(clk)

	ok, err := store.PutNX(ctx, "update:1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v; want true, nil", ok, err)
	}

	ok, _ = store.PutNX(ctx, "update:1", time.Minute)
	if ok {
		t.Error("second claim within ttl should fail")
	}

	ok, _ = store.PutNX(ctx, "update:2", time.Minute)
	if !ok {
		t.Error("a different key should be free")
	}

	clk.Advance(time.Minute)
	ok, _ = store.PutNX(ctx, "update:1", time.Minute)
	if !ok {
		t.Error("claim should be free again after ttl")
	}
}
