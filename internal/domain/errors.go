package domain

import (
	"context"
	"errors"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// IsRetryableFetchError reports whether a window fetch failure should be
// retried. Invalid sessions and cancelled contexts are terminal; everything
// else is treated as a transient store or network hiccup.
func IsRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrUnauthorized) {
		return false
	}
	return true
}
