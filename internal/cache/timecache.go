// Package cache holds lazily rebuilt values with a bounded age.
package cache

import "time"

// TimeCache returns a cached value until the refresh interval elapses, then
// rebuilds it synchronously on the next access.
//
// TimeCache performs no synchronization. It is owned by a single goroutine;
// sharing it across goroutines requires external locking.
type TimeCache[T any] struct {
	build    func() T
	interval time.Duration
	now      func() time.Time

	value   T
	builtAt time.Time
	built   bool
	version uint64
}

// Option customizes a TimeCache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a cache around build. A non-positive interval rebuilds on every access.
func New[T any](build func() T, interval time.Duration, opts ...Option) *TimeCache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TimeCache[T]{build: build, interval: interval, now: o.now}
}

// Value returns the cached value, rebuilding it first when it is missing or stale.
func (c *TimeCache[T]) Value() T {
	now := c.now()
	if c.built && now.Sub(c.builtAt) < c.interval {
		return c.value
	}
	c.value = c.build()
	c.builtAt = now
	c.built = true
	c.version++
	return c.value
}

// Version counts how many times the value has been built.
func (c *TimeCache[T]) Version() uint64 {
	return c.version
}

// Interval returns the configured refresh interval.
func (c *TimeCache[T]) Interval() time.Duration {
	return c.interval
}

// Invalidate forces the next Value call to rebuild.
func (c *TimeCache[T]) Invalidate() {
	c.built = false
}
