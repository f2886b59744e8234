package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed event IDs so handlers run at most once
type IdempotencyStore interface {
	// MarkProcessed returns true if the key was newly marked, false if it was already present
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unmark removes a key so a failed handler can be retried
	Unmark(ctx context.Context, key string) error
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// IdempotencyConfig configures idempotent handler wrapping
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns a 24h TTL with checking enabled
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
