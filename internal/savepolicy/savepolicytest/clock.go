// Package savepolicytest provides a manually driven clock for save policy tests.
package savepolicytest

import (
	"sync"
	"time"

	"github.com/rook-computer/drawboard/internal/savepolicy"
)

// Clock only moves when Advance is called. Tickers created from it fire for
// every period boundary crossed by Advance.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*ticker
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) NewTicker(d time.Duration) savepolicy.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &ticker{clock: c, period: d, next: c.now.Add(d), ch: make(chan time.Time, 16)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the clock forward by d, firing due tickers in order.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var due *ticker
		for _, t := range c.tickers {
			if !t.stopped && !t.next.After(target) && (due == nil || t.next.Before(due.next)) {
				due = t
			}
		}
		if due == nil {
			break
		}
		c.now = due.next
		due.next = due.next.Add(due.period)
		select {
		case due.ch <- c.now:
		default:
		}
	}
	c.now = target
	c.mu.Unlock()
}

// Tickers reports how many tickers are still running.
func (c *Clock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type ticker struct {
	clock   *Clock
	period  time.Duration
	next    time.Time
	ch      chan time.Time
	stopped bool
}

func (t *ticker) C() <-chan time.Time { return t.ch }

func (t *ticker) Stop() {
	t.clock.mu.Lock()
	t.stopped = true
	t.clock.mu.Unlock()
}
