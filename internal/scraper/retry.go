package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy controls bounded retries with exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Backoff     float64
}

// DefaultRetryPolicy returns the production policy: three attempts with a
// doubling delay between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Backoff:     2.0,
	}
}

// normalized fills zero fields with sane values.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	if p.Backoff < 1 {
		p.Backoff = 2.0
	}
	return p
}

// Retry runs op up to MaxAttempts times. Non-retryable failures propagate
// immediately without consuming budget; when every attempt fails the last
// error is returned. The delay between attempts grows by the backoff factor
// and honors context cancellation.
func Retry[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, op func(context.Context) (T, error)) (T, error) {
	var zero T
	policy = policy.normalized()
	if logger == nil {
		logger = zap.NewNop()
	}

	delay := policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !IsRetryable(err) {
			return zero, err
		}
		lastErr = err
		if attempt == policy.MaxAttempts {
			break
		}
		logger.Warn("attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return zero, err
		}
		delay = time.Duration(float64(delay) * policy.Backoff)
	}
	return zero, fmt.Errorf("all %d attempts failed: %w", policy.MaxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
