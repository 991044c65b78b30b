package shared

import (
	"context"
	"time"
)

// IdempotencyStore records which event ids a handler has already acted on,
// so a redelivered ProposalAccepted does not notify twice
type IdempotencyStore interface {
	// MarkProcessed claims eventID for ttl and reports whether this call
	// made the claim
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// Release drops a claim so the next delivery is handled again
	Release(ctx context.Context, eventID string) error
	Close() error
}

// IdempotencyConfig controls deduplication for one handler
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig remembers handled events for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: 24 * time.Hour, Enabled: true}
}
