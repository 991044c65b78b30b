package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backends bundles the Redis-backed collaborators of the reconciliation
// service. Client is nil when Redis is disabled or unreachable.
type Backends struct {
	Client      *redis.Client
	Idempotency shared.IdempotencyStore
	Locker      *OrderLocker
}

// Close releases the idempotency store and the Redis client
func (b *Backends) Close() error {
	if b.Idempotency != nil {
		_ = b.Idempotency.Close()
	}
	if b.Client != nil {
		return b.Client.Close()
	}
	return nil
}

// FactoryOption is a functional option for Open
type FactoryOption func(*factory)

type factory struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// in-memory dedupe and no cross-process lock. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *factory) {
		f.allowInMemoryFallback = allow
	}
}

// Open connects to Redis when enabled and builds the idempotency store and
// order locker on top of it. Without Redis both degrade: dedupe is in-memory
// and the locker is nil, leaving the optimistic version check as the only guard.
func Open(ctx context.Context, redisCfg config.RedisConfig, reconCfg config.ReconciliationConfig, opts ...FactoryOption) (*Backends, error) {
	f := &factory{logger: zap.NewNop(), allowInMemoryFallback: true}
	for _, opt := range opts {
		opt(f)
	}

	if !redisCfg.Enabled {
		f.logger.Info("redis disabled, using in-memory idempotency store")
		return &Backends{Idempotency: NewInMemoryIdempotencyStore(time.Minute)}, nil
	}

	client, err := NewRedisClient(ctx, redisCfg)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("redis unavailable, falling back to in-memory idempotency store; "+
			"duplicate notifications are possible across instances",
			zap.Error(err),
		)
		return &Backends{Idempotency: NewInMemoryIdempotencyStore(time.Minute)}, nil
	}

	f.logger.Info("using redis for idempotency and order locks", zap.String("addr", redisCfg.Addr()))
	return &Backends{
		Client:      client,
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Locker:      NewOrderLocker(client, reconCfg.LockTTL, f.logger),
	}, nil
}
