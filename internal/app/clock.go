package app

import "time"

// Clock schedules timer events onto the session loop.
type Clock interface {
	Now() time.Time
	// After posts ev once d has elapsed. stop prevents a delivery that has
	// not happened yet; handlers still guard against late deliveries.
	After(d time.Duration, ev Event) (stop func())
}

type timerClock struct {
	p Poster
}

// NewTimerClock returns a Clock backed by time.AfterFunc.
func NewTimerClock(p Poster) Clock {
	return timerClock{p: p}
}

func (c timerClock) Now() time.Time { return time.Now() }

func (c timerClock) After(d time.Duration, ev Event) func() {
	t := time.AfterFunc(d, func() { c.p.Post(ev) })
	return func() { t.Stop() }
}
