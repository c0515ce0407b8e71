package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers client-supplied request keys so a resubmitted
// write can be answered with the result of the first one.
type IdempotencyStore interface {
	// Reserve claims key for ttl.
	// Returns true if the key was free, false if another request holds it.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete records the result of the request that reserved key
	Complete(ctx context.Context, key, value string, ttl time.Duration) error

	// Lookup returns the recorded result for key.
	// found is false while the key is unknown or still pending.
	Lookup(ctx context.Context, key string) (value string, found bool, err error)

	// Release drops a reservation so the request can be retried
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a completed key keeps answering replays.
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency keys are honoured
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
