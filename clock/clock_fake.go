package clock

import (
	"sync"
	"time"
)

// FakeClock is a clock whose time only moves when waited on. After advances
// the clock by the requested duration and fires immediately.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.Advance(d)

	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}
