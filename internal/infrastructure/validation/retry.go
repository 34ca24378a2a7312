package validation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/DanielPopoola/claimpay/internal/config"
)

// retrier repeats transient failures: maxRetries more attempts after the
// first, waiting baseDelay * 2^retry before each.
type retrier struct {
	baseDelay  time.Duration
	maxRetries int
	maxJitter  time.Duration
	logger     *slog.Logger
}

func newRetrier(cfg config.RetryConfig, logger *slog.Logger) retrier {
	return retrier{
		baseDelay:  cfg.BaseDelay,
		maxRetries: cfg.MaxRetries,
		maxJitter:  cfg.MaxJitter,
		logger:     logger,
	}
}

// retry returns the attempt count alongside the result.
func retry[T any](ctx context.Context, r retrier, operation func(ctx context.Context) (T, error)) (T, int, error) {
	var (
		zero    T
		lastErr error
	)

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.backoff(attempt - 1)
			r.logger.Warn("retrying validation call",
				"attempt", attempt+1,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return zero, attempt, ctx.Err()
			case <-time.After(delay):
			}
		}

		select {
		case <-ctx.Done():
			return zero, attempt, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, attempt + 1, nil
		}

		lastErr = err

		if !isTransient(err) {
			return zero, attempt + 1, err
		}
	}

	return zero, r.maxRetries + 1, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func (r retrier) backoff(n int) time.Duration {
	base := r.baseDelay * time.Duration(1<<n)
	if r.maxJitter <= 0 {
		return base
	}
	return base + rand.N(r.maxJitter)
}
