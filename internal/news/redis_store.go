package news

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Redis keys mirror the browser client's localStorage layout: one key for the
// payload, freshness carried by the key's own TTL.
const redisCacheKey = "marketmood:news:cache"

// RedisStore persists the cache entry in Redis so it survives process
// restarts, the way the browser cache survived page reloads.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context) (*Entry, bool) {
	data, err := s.client.Get(ctx, redisCacheKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Msg("news cache read failed, treating as miss")
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Warn().Err(err).Msg("news cache entry corrupt, treating as miss")
		return nil, false
	}
	return &entry, true
}

func (s *RedisStore) Set(ctx context.Context, entry *Entry, ttl time.Duration) bool {
	// Generation guard: refuse to clobber a newer entry with a stale one.
	if current, ok := s.Get(ctx); ok && entry.Generation < current.Generation {
		log.Debug().
			Uint64("stored", current.Generation).
			Uint64("incoming", entry.Generation).
			Msg("rejected out-of-order news cache write")
		return false
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode news cache entry")
		return false
	}
	if err := s.client.Set(ctx, redisCacheKey, data, ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("news cache write failed")
		return false
	}
	return true
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, redisCacheKey).Err()
}
