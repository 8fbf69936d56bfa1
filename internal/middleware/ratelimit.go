package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed answers 503 if Redis is unavailable.
	FailClosed
)

var errNoRedis = errors.New("redis client is nil")

// RateLimitOptions configures one limited route group.
type RateLimitOptions struct {
	Limit  int
	Window time.Duration
	// Name is the counter namespace; the request path when empty.
	Name   string
	Policy FailPolicy
	// Env is the active APP_ENV profile.
	Env string
}

// RateLimitBypassed reports whether env is a profile that runs without limits.
func RateLimitBypassed(env string) bool {
	switch env {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit reports whether id may perform one more request against
// resource inside window.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, errNoRedis
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			// A counter without a TTL would never reset.
			_ = rdb.Del(ctx, key).Err()
			return false, fmt.Errorf("set rate limit window: %w", err)
		}
		return true, nil
	}

	if cnt > int64(limit) {
		// Heal counters left without a TTL so a caller is never locked out for good.
		if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl < 0 {
			_ = rdb.Expire(ctx, key, window).Err()
		}
		return false, nil
	}
	return true, nil
}

// RateLimit enforces opts.Limit requests per opts.Window, keyed by
// authenticated username when present and by client IP otherwise.
func RateLimit(rdb *redis.Client, opts RateLimitOptions) fiber.Handler {
	bypass := RateLimitBypassed(opts.Env)

	return func(c *fiber.Ctx) error {
		if bypass {
			return c.Next()
		}

		id := "ip:" + c.IP()
		if username, ok := CurrentUsername(c); ok {
			id = "user:" + username
		}

		resource := opts.Name
		if resource == "" {
			resource = c.Path()
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, id, opts.Limit, opts.Window)
		if err != nil {
			if opts.Policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
