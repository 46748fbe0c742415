package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys of operations that already happened.
// Submission handlers key it by handler name and event id; the attachment
// coordinator keys it by the store deletion it confirmed.
type IdempotencyStore interface {
	// MarkProcessed records key for ttl. It reports false if key was already recorded.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IsProcessed reports whether key is recorded and not expired
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// IdempotencyConfig controls how long keys are kept and whether checks run at all
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig keeps keys for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
