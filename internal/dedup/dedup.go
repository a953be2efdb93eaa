// Package dedup suppresses redelivered platform updates. The chat platform
// delivers updates at least once; claiming each update ID before handling
// it keeps duplicate deliveries from producing duplicate replies.
package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/rollcall/internal/clock"
)

// Store claims keys for a limited time.
type Store interface {
	// PutNX claims key for ttl. It returns true when the key was free.
	PutNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type redisStore struct{ r *redis.Client }

// NewRedis returns a Store shared by every process using the same Redis.
func NewRedis(client *redis.Client) Store {
	return &redisStore{r: client}
}

func (s *redisStore) PutNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.r.SetNX(ctx, "rollcall:dedup:"+key, "1", ttl).Result()
}

// MemoryStore is a process-local Store for single-instance deployments
// and tests.
type MemoryStore struct {
	mu    sync.Mutex
	clock clock.Clock
	keys  map[string]time.Time
}

// NewMemory returns an empty MemoryStore.
func NewMemory(clk clock.Clock) *MemoryStore {
	return &MemoryStore{clock: clk, keys: make(map[string]time.Time)}
}

// PutNX claims key unless an unexpired claim exists.
func (s *MemoryStore) PutNX(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if exp, ok := s.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.keys[key] = now.Add(ttl)

	// sweep
	if len(s.keys) > 1024 {
		for k, exp := range s.keys {
			if !now.Before(exp) {
				delete(s.keys, k)
			}
		}
	}
	return true, nil
}
