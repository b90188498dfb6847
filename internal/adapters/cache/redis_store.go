package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/internal/domain/providers"
	redisclient "github.com/pharmiliar/cost-engine/internal/infrastructure/clients/redis"
)

// RedisStore persists the query cache in a Redis hash, one field per
// normalized query.
type RedisStore struct {
	client *redisclient.Client
	key    string
}

// NewRedisStore creates a Redis-backed cache store
func NewRedisStore(client *redisclient.Client, key string) providers.CacheStore {
	return &RedisStore{
		client: client,
		key:    key,
	}
}

// Load reads all persisted entries from the hash
func (s *RedisStore) Load(ctx context.Context) (map[string]entities.CacheEntry, error) {
	fields, err := s.client.Client().HGetAll(ctx, s.key).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to load cache from redis: %w", err)
	}

	entries := make(map[string]entities.CacheEntry, len(fields))
	for field, raw := range fields {
		var entry entities.CacheEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to parse cache entry %q: %w", field, err)
		}
		entries[field] = entry
	}
	return entries, nil
}

// Save replaces the hash contents with the given entry map
func (s *RedisStore) Save(ctx context.Context, entries map[string]entities.CacheEntry) error {
	fields := make(map[string]interface{}, len(entries))
	for key, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode cache entry %q: %w", key, err)
		}
		fields[key] = data
	}

	pipe := s.client.Client().TxPipeline()
	pipe.Del(ctx, s.key)
	if len(fields) > 0 {
		pipe.HSet(ctx, s.key, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save cache to redis: %w", err)
	}
	return nil
}
