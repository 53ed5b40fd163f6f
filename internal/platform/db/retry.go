package db

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy controls the exponential backoff used by Retry.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy returns three attempts starting at 100ms, capped at 1s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// delay returns the wait before the given retry (1-based).
func (p RetryPolicy) delay(retry int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

// Retry runs fn until it succeeds, returns a non-transient error or the
// policy runs out of attempts. The last error is returned wrapped so
// IsTransient still recognises it. When ctx ends during a backoff the
// context error is returned and the last attempt's error is only kept as
// text, so a cancelled caller is not reported as an outage.
func Retry(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	policy = policy.normalized()
	var err error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		if attempt == policy.Attempts {
			break
		}
		timer := time.NewTimer(policy.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("platform/db: retry interrupted after %d attempts (last error: %v): %w", attempt, err, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("platform/db: gave up after %d attempts: %w", policy.Attempts, err)
}

// RetryValue is Retry for operations that produce a value.
func RetryValue[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := Retry(ctx, policy, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
