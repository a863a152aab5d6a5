package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Schedule is the explicit retry state machine for one batch attempt
// sequence: Pending → Sending → (Success | RetryableFailure → Sending |
// TerminalFailure). The attempt bound and both backoff curves are data, not
// inline sleeps.
type Schedule struct {
	// MaxAttempts is the total number of attempts (including the first).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// TransientDelay is the fixed wait between attempts after a transient
	// network failure. Default: 3s.
	TransientDelay time.Duration

	// RateLimitStep scales linearly with the attempt number after an HTTP
	// 429: delay = attempt × RateLimitStep. Default: 5s.
	RateLimitStep time.Duration

	// OnRetry is called before each retry sleep with the attempt number
	// (1-based) and the error that triggered it.
	OnRetry func(attempt int, err error)
}

// DefaultSchedule returns the schedule used for inference calls.
func DefaultSchedule() Schedule {
	return Schedule{
		MaxAttempts:    3,
		TransientDelay: 3 * time.Second,
		RateLimitStep:  5 * time.Second,
	}
}

func (s Schedule) withDefaults() Schedule {
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = 3
	}
	if s.TransientDelay <= 0 {
		s.TransientDelay = 3 * time.Second
	}
	if s.RateLimitStep <= 0 {
		s.RateLimitStep = 5 * time.Second
	}
	return s
}

// delayFor classifies err and returns the wait before the next attempt.
// retryable is false for terminal errors (non-429 status, parse failures,
// anything unclassified).
func (s Schedule) delayFor(err error, attempt int) (delay time.Duration, retryable bool) {
	switch {
	case IsRateLimited(err):
		return time.Duration(attempt) * s.RateLimitStep, true
	case IsTransient(err):
		return s.TransientDelay, true
	default:
		return 0, false
	}
}

// DoVal executes fn under the schedule and preserves the value from the
// successful attempt. Context cancellation stops retries immediately.
func DoVal[T any](ctx context.Context, s Schedule, fn func(ctx context.Context) (T, error)) (T, error) {
	s = s.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}

		delay, retryable := s.delayFor(lastErr, attempt)
		if !retryable {
			return zero, lastErr
		}

		// Don't sleep after the last attempt.
		if attempt >= s.MaxAttempts {
			break
		}

		if s.OnRetry != nil {
			s.OnRetry(attempt, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
