package cashregister

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// linearBackOff waits attempt × step after each failed attempt: 1×step after
// the first failure, 2×step after the second and so on. The attempt cap is
// applied by backoff.WithMaxRetries around it.
type linearBackOff struct {
	step    time.Duration
	attempt int64
}

func newLinearBackOff(step time.Duration) *linearBackOff {
	return &linearBackOff{step: step}
}

// NextBackOff implements backoff.BackOff
func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.step
}

// Reset implements backoff.BackOff
func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// retryPolicy builds the backoff of one fetch sequence: attempts tries in total
func retryPolicy(attempts int, step time.Duration) backoff.BackOff {
	retries := uint64(0)
	if attempts > 1 {
		retries = uint64(attempts - 1)
	}
	return backoff.WithMaxRetries(newLinearBackOff(step), retries)
}

var _ backoff.BackOff = (*linearBackOff)(nil)
