package service

import (
	"sync"
	"time"
)

// Clock supplies ledger time in unix seconds. Requests never carry their own timestamps.
type Clock interface {
	Now() uint64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current unix time.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock is a settable clock for tests and replay tooling.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

// NewManualClock starts at the given unix time.
func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current setting.
func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d, truncated to whole seconds.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += uint64(d / time.Second)
}
