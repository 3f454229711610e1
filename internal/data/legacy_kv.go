package data

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/target/inboxjobs/internal/core"
)

// DefaultLegacyHashKey is the Redis hash holding legacy job entries.
const DefaultLegacyHashKey = "inboxjobs:legacy"

// RedisLegacyKV exposes the fields of one Redis hash as the legacy key-value store.
type RedisLegacyKV struct {
	client  redis.UniversalClient
	hashKey string
}

var _ core.LegacyKV = (*RedisLegacyKV)(nil)

// NewRedisLegacyKV creates a RedisLegacyKV over hashKey.
func NewRedisLegacyKV(client redis.UniversalClient, hashKey string) *RedisLegacyKV {
	if hashKey == "" {
		hashKey = DefaultLegacyHashKey
	}
	return &RedisLegacyKV{client: client, hashKey: hashKey}
}

// Entries returns every field of the hash.
func (kv *RedisLegacyKV) Entries(ctx context.Context) (map[string]string, error) {
	entries, err := kv.client.HGetAll(ctx, kv.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", kv.hashKey, err)
	}
	return entries, nil
}

// Delete removes the given fields from the hash.
func (kv *RedisLegacyKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := kv.client.HDel(ctx, kv.hashKey, keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", kv.hashKey, err)
	}
	return nil
}

// MemoryLegacyKV is an in-process legacy store.
type MemoryLegacyKV struct {
	mu      sync.Mutex
	entries map[string]string
}

var _ core.LegacyKV = (*MemoryLegacyKV)(nil)

// NewMemoryLegacyKV creates a store seeded with entries.
func NewMemoryLegacyKV(entries map[string]string) *MemoryLegacyKV {
	kv := &MemoryLegacyKV{entries: map[string]string{}}
	maps.Copy(kv.entries, entries)
	return kv
}

// Entries returns a copy of every entry.
func (kv *MemoryLegacyKV) Entries(_ context.Context) (map[string]string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	return maps.Clone(kv.entries), nil
}

// Delete removes keys.
func (kv *MemoryLegacyKV) Delete(_ context.Context, keys ...string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	for _, k := range keys {
		delete(kv.entries, k)
	}
	return nil
}
