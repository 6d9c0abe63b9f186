package orch

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/app"
	"github.com/dkeye/parley/internal/core"
)

var ErrStopped = errors.New("orchestrator stopped")

// Handler consumes loop events. *app.Runtime is the production handler.
type Handler interface {
	Start()
	Handle(ev app.Event)
	Teardown()
}

// Orchestrator owns the session loop. Every event, whatever goroutine it
// comes from, is handled on the loop goroutine one at a time.
type Orchestrator struct {
	queue    chan app.Event
	stopping chan struct{}
	done     chan struct{}
	halt     sync.Once
	once     sync.Once

	rt   Handler
	link core.ChannelLink
}

func New(queueSize int) *Orchestrator {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Orchestrator{
		queue:    make(chan app.Event, queueSize),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Bind attaches the handler and the channel link. It must be called before Run.
func (o *Orchestrator) Bind(rt Handler, link core.ChannelLink) {
	o.rt = rt
	o.link = link
}

// Post enqueues ev. Once shutdown has begun ev is dropped and Post no longer
// blocks, even with a full queue.
func (o *Orchestrator) Post(ev app.Event) {
	select {
	case <-o.stopping:
		return
	default:
	}
	select {
	case o.queue <- ev:
	case <-o.stopping:
	}
}

// Run handles events until ctx is cancelled or a Teardown event arrives,
// then tears the session down and closes the link.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.stop()
	log.Info().Str("module", "orch").Msg("session loop started")
	o.rt.Start()

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return ctx.Err()
		case ev := <-o.queue:
			if _, ok := ev.(app.Teardown); ok {
				o.shutdown()
				return nil
			}
			o.rt.Handle(ev)
		}
	}
}

// Done is closed once the loop has exited.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

func (o *Orchestrator) shutdown() {
	o.beginStop()
	o.rt.Teardown()
	if o.link != nil {
		o.link.Close()
	}
	log.Info().Str("module", "orch").Msg("session loop stopped")
}

func (o *Orchestrator) beginStop() {
	o.halt.Do(func() { close(o.stopping) })
}

func (o *Orchestrator) stop() {
	o.beginStop()
	o.once.Do(func() { close(o.done) })
}

// Snapshot asks the loop for a consistent view of the session.
func (o *Orchestrator) Snapshot(ctx context.Context) (app.Snapshot, error) {
	reply := make(chan app.Snapshot, 1)
	o.Post(app.SnapshotRequest{Reply: reply})
	select {
	case snap := <-reply:
		return snap, nil
	case <-o.done:
		return app.Snapshot{}, ErrStopped
	case <-ctx.Done():
		return app.Snapshot{}, ctx.Err()
	}
}
