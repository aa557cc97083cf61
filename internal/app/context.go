package app

import (
	"context"
	"time"
)

// WithTimeoutAndContextCheck skips fn when parent is already done; a zero timeout adds no deadline.
func WithTimeoutAndContextCheck[T any](parent context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		if parent.Err() != nil {
			return zero, parent.Err()
		}
		return fn(parent)
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}
	return fn(ctx)
}
