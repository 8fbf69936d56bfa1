package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"forum/internal/middleware"
	"forum/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	PostsListKey = "posts:list"
	PostsListTTL = 30 * time.Second
	// PostsGenerationKey is bumped by every content write. Listings are
	// cached under the generation current when their read began.
	PostsGenerationKey = "posts:list:gen"
)

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// aside tries Redis first; on a miss it calls fetch, which must populate
// dest, and stores the result under key with ttl. Cache failures never
// fail the read. label names the cache in metrics.
func aside(ctx context.Context, label, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	switch {
	case err != nil:
		observability.CacheRequests.WithLabelValues(label, "error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	case found:
		observability.CacheRequests.WithLabelValues(label, "hit").Inc()
		return nil
	case client != nil:
		observability.CacheRequests.WithLabelValues(label, "miss").Inc()
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// PostsListGenerationKey names the cached listing for generation gen.
func PostsListGenerationKey(gen int64) string {
	return fmt.Sprintf("%s:%d", PostsListKey, gen)
}

// PostsAside serves the post listing through the cache. A listing read
// before a concurrent write is stored under the old generation, which no
// reader after the write looks up.
func PostsAside(ctx context.Context, dest any, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	gen, err := client.Get(ctx, PostsGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.CacheRequests.WithLabelValues(PostsListKey, "error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", PostsGenerationKey), slog.String("error", err.Error()))
		return fetch()
	}
	return aside(ctx, PostsListKey, PostsListGenerationKey(gen), dest, PostsListTTL, fetch)
}

// InvalidatePosts retires the cached post listing after any content write.
func InvalidatePosts(ctx context.Context) {
	if client == nil {
		return
	}
	if err := client.Incr(ctx, PostsGenerationKey).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed", slog.String("key", PostsGenerationKey), slog.String("error", err.Error()))
	}
}
