package apptest

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/parley/internal/app"
)

type timer struct {
	at      time.Time
	seq     int
	ev      app.Event
	stopped bool
}

// ManualClock is an app.Clock that only moves when told to.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*timer
}

func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) After(d time.Duration, ev app.Event) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{at: c.now.Add(d), seq: c.seq, ev: ev}
	c.timers = append(c.timers, t)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		t.stopped = true
	}
}

// Advance moves time forward by d and hands every timer that comes due to
// deliver, in due order. Timers armed by deliver are honoured if they fall
// inside the window.
func (c *ManualClock) Advance(d time.Duration, deliver func(app.Event)) {
	c.mu.Lock()
	deadline := c.now.Add(d)
	c.mu.Unlock()

	for {
		ev, ok := c.next(deadline)
		if !ok {
			break
		}
		deliver(ev)
	}

	c.mu.Lock()
	c.now = deadline
	c.mu.Unlock()
}

func (c *ManualClock) next(deadline time.Time) (app.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	c.timers = live
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].at.Equal(c.timers[j].at) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].at.Before(c.timers[j].at)
	})
	if len(c.timers) == 0 || c.timers[0].at.After(deadline) {
		return nil, false
	}
	t := c.timers[0]
	c.timers = c.timers[1:]
	c.now = t.at
	return t.ev, true
}

// Pending is the number of armed timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}
