package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps snapshots in Redis with SET ... EX so the server expires
// them. It survives process restarts and is shared between replicas.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Save implements Store.
func (r *RedisStore) Save(ctx context.Context, owner string, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	key := snap.Key(owner)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, raw, r.ttl)
		pipe.Set(ctx, latestKey(owner), key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("snapshot: save: %w", err)
	}
	return nil
}

// Latest implements Store.
func (r *RedisStore) Latest(ctx context.Context, owner string) (Snapshot, error) {
	key, err := r.client.Get(ctx, latestKey(owner)).Result()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: read pointer: %w", err)
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: read entry: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: decode %s: %w", key, err)
	}
	return snap, nil
}

// Discard implements Store.
func (r *RedisStore) Discard(ctx context.Context, owner string) error {
	pointer := latestKey(owner)
	key, err := r.client.Get(ctx, pointer).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("snapshot: read pointer: %w", err)
	}

	keys := []string{pointer}
	if key != "" {
		keys = append(keys, key)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("snapshot: discard: %w", err)
	}
	return nil
}
