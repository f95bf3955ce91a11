// Package ratelimit provides fixed-window counters keyed by caller.
//
// Callers Reserve a unit before doing the limited work. A reservation is
// atomic, so concurrent callers cannot all slip through while the work is
// still running. Requests turned away by the limiter do not extend the
// block, and Release hands a unit back when the work failed upstream.
package ratelimit

import (
	"context"
	"time"
)

// Store is a fixed-window limiter.
type Store interface {
	// Reserve consumes one unit of quota for key and reports whether one
	// was available. A full window is left untouched.
	Reserve(ctx context.Context, key string) (bool, error)
	// Release returns a unit taken by Reserve in the current window.
	Release(ctx context.Context, key string) error
}

// Config is shared by every Store implementation.
type Config struct {
	Limit  int
	Window time.Duration
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = 5
	}
	if c.Window <= 0 {
		c.Window = time.Hour
	}
	return c
}
