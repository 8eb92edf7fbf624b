package clock

import "time"

// FakeClock is a Clock that only moves when a test tells it to, so session
// expiry, form deadlines and limiter refill can be driven deterministically.
type FakeClock struct {
	now time.Time
}

// NewFakeClock pins the clock to start, normalized to UTC like the system
// clock.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the fake time forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
