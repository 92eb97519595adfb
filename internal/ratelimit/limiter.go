package ratelimit

import "context"

// Limiter bounds how often a single user may issue read-state mutations.
type Limiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

// Noop allows every request. Used where mutation throttling is disabled.
type Noop struct{}

func (Noop) Allow(ctx context.Context, userID string) (bool, error) {
	return true, nil
}
