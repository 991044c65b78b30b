package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const orderLockPrefix = "recon:lock:order:"

// OrderLocker takes a short-lived Redis lock per order around an accept.
// It narrows the window for version conflicts between instances; the
// database version check still decides correctness.
type OrderLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewOrderLocker creates a locker. Callers wait up to half the ttl for a
// lock held elsewhere before giving up.
func NewOrderLocker(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *OrderLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderLocker{
		locker: redislock.New(client),
		ttl:    ttl,
		wait:   ttl / 2,
		logger: logger,
	}
}

// Lock obtains the lock for orderID. acquired is false when another holder
// kept it past the wait; release is always safe to call.
func (l *OrderLocker) Lock(ctx context.Context, orderID uuid.UUID) (func(), bool, error) {
	retries := int(l.wait / (100 * time.Millisecond))
	lock, err := l.locker.Obtain(ctx, orderLockPrefix+orderID.String(), l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return func() {}, false, nil
	}
	if err != nil {
		return func() {}, false, err
	}

	release := func() {
		// The request context may already be cancelled by the time we release
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("failed to release order lock",
				zap.String("order_id", orderID.String()),
				zap.Error(err),
			)
		}
	}
	return release, true, nil
}
