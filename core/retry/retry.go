package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Default backoff parameters. Tuned for polling consumer APIs where a burst of
// failures is usually a transient outage or a rate limiter, not a dead service.
const (
	DefaultMaxAttempts = 6
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 60 * time.Second
)

// Options controls the backoff schedule for a single Do call.
type Options struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the pre-jitter delay after the first failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps the pre-jitter delay.
	MaxDelay time.Duration

	// Sleep and Rand are injection points for tests. Nil means real
	// time.Sleep and the global rand source.
	Sleep func(time.Duration)
	Rand  *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	return o
}

// StatusError is an HTTP-level failure from a provider API. It carries the
// status code so rate limiting can be recognized in logs.
type StatusError struct {
	Status int
	URL    string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http %d from %s: %s", e.Status, e.URL, e.Body)
	}
	return fmt.Sprintf("http %d from %s", e.Status, e.URL)
}

// IsRateLimited reports whether err looks like provider throttling. Detection
// only changes log severity; the backoff schedule stays the same either way.
func IsRateLimited(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests
	}
	var te interface{ Throttled() bool }
	if errors.As(err, &te) {
		return te.Throttled()
	}
	return false
}

// Delay returns the pre-jitter delay before the given retry (attempt is
// 1-based: attempt 1 failed, we are about to retry).
func Delay(attempt int, base, max time.Duration) time.Duration {
	d := base << (attempt - 1)
	if d > max || d <= 0 {
		// The shift overflows for large attempt counts.
		d = max
	}
	return d
}

// Do runs op until it succeeds or the attempt budget is spent, sleeping an
// exponentially growing, jittered delay between attempts. The label names the
// operation in log output. The last error is returned after exhaustion; the
// caller decides whether to skip the unit or abort.
//
// Every call is independent: there is no shared budget or circuit breaker
// across calls, and each attempt is a single blocking invocation of op.
func Do[T any](ctx context.Context, log *zap.Logger, label string, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == opts.MaxAttempts {
			break
		}

		delay := Delay(attempt, opts.BaseDelay, opts.MaxDelay)
		jittered := time.Duration(float64(delay) * jitter(opts.Rand))

		if IsRateLimited(err) {
			log.Warn("rate limited, backing off",
				zap.String("op", label),
				zap.Int("attempt", attempt),
				zap.Duration("delay", jittered),
				zap.Error(err),
			)
		} else {
			log.Info("retrying",
				zap.String("op", label),
				zap.Int("attempt", attempt),
				zap.Duration("delay", jittered),
				zap.Error(err),
			)
		}

		opts.Sleep(jittered)

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", label, opts.MaxAttempts, lastErr)
}

// jitter draws a multiplier uniformly from [0.25, 1.25).
func jitter(r *rand.Rand) float64 {
	if r != nil {
		return 0.25 + r.Float64()
	}
	return 0.25 + rand.Float64()
}
