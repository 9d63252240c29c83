// Package retry runs upstream lookups under a bounded, linear retry policy.
// Only failures classified as transient are retried; when attempts run out
// the last error is wrapped as apperr.KindUnavailable.
package retry

import (
	"context"
	"errors"
	"net"
	"regexp"
	"time"

	"consulta_backend/platform/apperr"
)

const msgUnavailable = "serviço temporariamente indisponível, tente novamente"

var transientSignature = regexp.MustCompile(`(?i)timeout|timed out|deadline exceeded|connection reset|connection refused|econnreset|econnrefused|upstream|fetch failed|\b50[234]\b|bad gateway|service unavailable|gateway timeout`)

// Policy describes how many times to try and how long to wait in between.
type Policy struct {
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
	// IsTransient decides whether a failure is worth another attempt.
	IsTransient func(error) bool
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error)
}

// Linear returns attempt × unit.
func Linear(unit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * unit
	}
}

// DefaultPolicy is 3 attempts with 1s then 2s waits.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Linear(time.Second),
		IsTransient: IsTransient,
	}
}

// MaxDelay is the worst-case time spent waiting between attempts.
func (p Policy) MaxDelay() time.Duration {
	p = p.withDefaults()
	var total time.Duration
	for attempt := 1; attempt < p.MaxAttempts; attempt++ {
		total += p.Backoff(attempt)
	}
	return total
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = Linear(time.Second)
	}
	if p.IsTransient == nil {
		p.IsTransient = IsTransient
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	return p
}

// Do calls fn until it succeeds, fails with a non-transient error, or the
// policy is exhausted. Non-transient errors are returned unchanged.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !p.IsTransient(err) {
			return zero, err
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if serr := p.Sleep(ctx, p.Backoff(attempt)); serr != nil {
			return zero, apperr.Unavailable(msgUnavailable, errors.Join(lastErr, serr)).WithOp(op)
		}
	}

	return zero, apperr.Unavailable(msgUnavailable, lastErr).WithOp(op)
}

// IsTransient reports whether err looks like a timeout, a dropped
// connection or a 502/503/504 from an upstream.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return transientSignature.MatchString(err.Error())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
