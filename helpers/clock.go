package helpers

import (
	"sync"
	"time"
)

// Clock is the source of time for all hardware timing and idle accounting.
// time.Now() carries monotonic reading, so Sub/Since on its values is safe
// against wall clock adjustments.
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

func Since(c Clock, t time.Time) time.Duration { return c.Now().Sub(t) }

// FakeClock advances only on Sleep or Add.
// OnSleep, if set, is called after time moved forward.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	slept   time.Duration
	sleeps  int
	OnSleep func(now time.Time, d time.Duration)
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.slept += d
	c.sleeps++
	now, hook := c.now, c.OnSleep
	c.mu.Unlock()
	if hook != nil {
		hook(now, d)
	}
}

func (c *FakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Slept returns total duration passed through Sleep and number of calls.
func (c *FakeClock) Slept() (time.Duration, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slept, c.sleeps
}
