// Package cache provides the redis-backed worklist cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/labforge/labrun/pkg/services"
)

// DefaultTTL keeps cached worklists short-lived; the projection is cheap to
// recompute and stale entries would hide newly imported routines.
const DefaultTTL = 60 * time.Second

// WorklistCache implements services.WorklistCache on redis. Cache failures
// are reported as misses; the projector recomputes and the engine stays
// correct without redis.
type WorklistCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewWorklistCache creates a redis-backed worklist cache.
func NewWorklistCache(redisURL string, logger *slog.Logger) (*WorklistCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return &WorklistCache{
		client: redis.NewClient(opts),
		ttl:    DefaultTTL,
		logger: logger.With("module", "worklist_cache"),
	}, nil
}

func (c *WorklistCache) Get(ctx context.Context, key string) ([]services.WorklistEntry, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "Worklist cache read failed", "key", key, "error", err)
		}

		return nil, false
	}

	var entries []services.WorklistEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		c.logger.WarnContext(ctx, "Worklist cache entry is malformed", "key", key, "error", err)

		return nil, false
	}

	return entries, true
}

func (c *WorklistCache) Set(ctx context.Context, key string, entries []services.WorklistEntry) {
	payload, err := json.Marshal(entries)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to marshal worklist cache entry", "key", key, "error", err)

		return
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Worklist cache write failed", "key", key, "error", err)
	}
}

// Close releases the redis connection.
func (c *WorklistCache) Close() error {
	return c.client.Close()
}
