package clock

import (
	"sync"
	"time"
)

// VirtualClock is a controllable clock. Advancing it fires pending After
// channels and tickers instantly, so block expiry and window sweeps can be
// tested without sleeping.
//
// Thread-safe for concurrent use.
type VirtualClock struct {
	mu      sync.RWMutex
	current time.Time
	waiters []waiter
	tickers []*virtualTicker
}

type waiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewVirtualClock creates a VirtualClock starting at the given time.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{
		current: start,
	}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Since returns the virtual duration elapsed since t.
func (c *VirtualClock) Since(t time.Time) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Sub(t)
}

// After returns a channel that receives the virtual time once the clock
// has advanced past the current time plus d.
func (c *VirtualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.current
		return ch
	}

	c.waiters = append(c.waiters, waiter{
		deadline: c.current.Add(d),
		ch:       ch,
	})
	return ch
}

// NewTicker returns a ticker driven by Advance and Set. Like time.Ticker it
// holds at most one pending tick; ticks nobody reads are dropped.
// Panics if d is not positive.
func (c *VirtualClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t := &virtualTicker{
		clock:    c,
		interval: d,
		next:     c.current.Add(d),
		ch:       make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the virtual clock forward by the given duration.
// Panics if d is negative.
func (c *VirtualClock) Advance(d time.Duration) {
	if d < 0 {
		panic("clock: cannot advance by negative duration")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(d)
	c.fire()
}

// Set sets the virtual clock to an exact time.
// Panics if t is before the current time.
func (c *VirtualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.Before(c.current) {
		panic("clock: cannot set time to the past")
	}

	c.current = t
	c.fire()
}

// TickerCount reports how many tickers are still running.
func (c *VirtualClock) TickerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tickers)
}

// fire releases due waiters and ticks due tickers. Must be called with c.mu held.
func (c *VirtualClock) fire() {
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.current) {
			w.ch <- c.current
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining

	for _, t := range c.tickers {
		if t.next.After(c.current) {
			continue
		}
		for !t.next.After(c.current) {
			t.next = t.next.Add(t.interval)
		}
		select {
		case t.ch <- c.current:
		default:
		}
	}
}

func (c *VirtualClock) removeTicker(t *virtualTicker) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, other := range c.tickers {
		if other == t {
			c.tickers = append(c.tickers[:i], c.tickers[i+1:]...)
			return
		}
	}
}

type virtualTicker struct {
	clock    *VirtualClock
	interval time.Duration
	next     time.Time
	ch       chan time.Time
	stopOnce sync.Once
}

func (t *virtualTicker) C() <-chan time.Time { return t.ch }

func (t *virtualTicker) Stop() {
	t.stopOnce.Do(func() {
		t.clock.removeTicker(t)
	})
}
