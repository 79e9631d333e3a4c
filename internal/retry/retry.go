// Package retry implements a bounded exponential backoff policy shared by the
// embedding and generation clients. The policy is a plain value so each client
// wrapper is parameterized by it instead of duplicating backoff loops.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy configures retry behavior for transient failures.
type Policy struct {
	MaxAttempts  int           // Total attempts, including the first
	InitialDelay time.Duration // Delay before the second attempt
	MaxDelay     time.Duration // Cap for the exponential delay
}

// DefaultPolicy returns sensible defaults for remote model API calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, the attempts
// are exhausted, or ctx is done. retryable reports whether an error is
// transient. Each delay doubles, capped at MaxDelay, with up to 25% jitter so
// concurrent callers do not retry in lockstep.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("canceled during retry: %w", ctx.Err())
		case <-time.After(withJitter(delay)):
			delay = min(delay*2, p.MaxDelay)
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func withJitter(d time.Duration) time.Duration {
	quarter := int64(d) / 4
	if quarter <= 0 {
		return d
	}
	return d + time.Duration(rand.Int64N(quarter))
}
