package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

// RedisStore keeps documents as string keys and lists as Redis lists, so
// several instances can share one calibrated state.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ domrepo.DocumentStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

func (s *RedisStore) LoadDocument(ctx context.Context, key string, dest any) error {
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis store: get %s: %w", key, err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrConfigCorrupt, key, err)
	}
	return nil
}

func (s *RedisStore) SaveDocument(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis store: encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.key(key), b, 0).Err(); err != nil {
		return fmt.Errorf("redis store: set %s: %w", key, err)
	}
	return nil
}

// AppendCapped pushes and trims in one MULTI so no reader sees the list
// above its cap.
func (s *RedisStore) AppendCapped(ctx context.Context, list string, entry any, limit int) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis store: encode %s entry: %w", list, err)
	}
	k := s.key(list)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, k, b)
	if limit > 0 {
		pipe.LTrim(ctx, k, int64(-limit), -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store: append %s: %w", list, err)
	}
	return nil
}

func (s *RedisStore) LoadList(ctx context.Context, list string, dest any) error {
	items, err := s.client.LRange(ctx, s.key(list), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis store: range %s: %w", list, err)
	}
	if len(items) == 0 {
		return decodeList(nil, dest)
	}
	return decodeList(joinRaw(items), dest)
}

// Close is a no-op; the client belongs to the cache layer.
func (s *RedisStore) Close() error { return nil }
