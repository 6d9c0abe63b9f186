package apptest

import (
	"sync"
	"testing"
	"time"

	"github.com/dkeye/parley/internal/app"
)

// WaitTimeout bounds how long Take waits for an async completion.
const WaitTimeout = 2 * time.Second

// Queue is a Poster that collects events for the test to hand to the
// runtime itself, in whatever order the test needs.
type Queue struct {
	ch      chan app.Event
	mu      sync.Mutex
	backlog []app.Event
}

func NewQueue() *Queue {
	return &Queue{ch: make(chan app.Event, 256)}
}

func (q *Queue) Post(ev app.Event) {
	q.ch <- ev
}

// Take returns the next posted event of type T. Events of other types seen
// while waiting are kept for later calls.
func Take[T app.Event](t testing.TB, q *Queue) T {
	t.Helper()

	q.mu.Lock()
	for i, ev := range q.backlog {
		if match, ok := ev.(T); ok {
			q.backlog = append(q.backlog[:i], q.backlog[i+1:]...)
			q.mu.Unlock()
			return match
		}
	}
	q.mu.Unlock()

	deadline := time.After(WaitTimeout)
	for {
		select {
		case ev := <-q.ch:
			if match, ok := ev.(T); ok {
				return match
			}
			q.mu.Lock()
			q.backlog = append(q.backlog, ev)
			q.mu.Unlock()
		case <-deadline:
			var zero T
			t.Fatalf("no %T posted within %s", zero, WaitTimeout)
			return zero
		}
	}
}
