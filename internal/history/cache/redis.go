package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sustainly-backend/internal/history/domain"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "sustainly:history:"

// RedisCache shares entries between service instances. Keys expire after
// the retention window.
type RedisCache struct {
	rdb       goredis.UniversalClient
	retention time.Duration
}

func NewRedisCache(rdb goredis.UniversalClient, retention time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, retention: retention}
}

// Connect dials addr and verifies the server answers.
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func key(userID string) string {
	return keyPrefix + userID
}

func (c *RedisCache) Get(ctx context.Context, userID string) (Entry, bool, error) {
	raw, err := c.rdb.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("decode history cache entry: %w", err)
	}
	return entry, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, entry Entry) error {
	if entry.Items == nil {
		entry.Items = []domain.HistoryItem{}
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(userID), raw, c.retention).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, key(userID)).Err()
}
