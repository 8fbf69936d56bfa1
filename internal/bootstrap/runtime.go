// Package bootstrap wires configuration, stores and the HTTP server together
// for the forum commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"forum/internal/cache"
	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/middleware"
	"forum/internal/observability"
	"forum/internal/server"
	"forum/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceVersion = "1.0.0"

// Runtime holds every long-lived dependency of a running API process.
type Runtime struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Storage storage.FileStorage
	Server  *server.Server

	shutdownTracing func(context.Context) error
}

// InitLogging installs the process logger for cfg's environment.
func InitLogging(cfg *config.Config) {
	middleware.SetLogger(middleware.NewLogger(os.Stdout, cfg.Env))
}

// StorageOptions maps upload settings onto storage options.
func StorageOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Backend:  cfg.UploadBackend,
		LocalDir: cfg.UploadDir,
		S3: storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		},
	}
}

// InitRuntime connects to the database, Redis and media storage, builds the
// server and starts realtime event wiring. Redis is optional: an empty or
// unreachable REDIS_URL leaves it nil.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    "forum-api",
		ServiceVersion: serviceVersion,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	rt := &Runtime{Config: cfg, shutdownTracing: shutdownTracing}

	rt.DB, err = database.Connect(ctx, cfg)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Cache helpers and the server share one client; nil when Redis is off.
	cache.InitRedis(ctx, cfg.RedisURL)
	rt.Redis = cache.GetClient()

	rt.Storage, err = storage.New(ctx, StorageOptions(cfg))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("media storage init failed: %w", err)
	}
	middleware.Logger.Info("Media storage ready", slog.String("backend", rt.Storage.Backend()))

	rt.Server, err = server.NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Storage)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	if err := rt.Server.StartRealtime(ctx); err != nil {
		// Local fan-out still works; only cross-replica delivery is lost.
		middleware.Logger.Warn("Realtime event subscription failed", slog.String("error", err.Error()))
	}

	return rt, nil
}

// Close releases everything InitRuntime acquired. It is safe on a partially
// initialized runtime.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error

	if r.Server != nil {
		if err := r.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("database close: %w", err))
			}
		}
	}
	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}
