package orch_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/parley/internal/app"
	"github.com/dkeye/parley/internal/app/apptest"
	"github.com/dkeye/parley/internal/app/orch"
	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

type env struct {
	o       *orch.Orchestrator
	link    *apptest.FakeLink
	view    *apptest.FakeView
	list    *apptest.FakeList
	history *apptest.FakeHistory
	convs   *apptest.FakeConversations
	clock   *apptest.ManualClock
	cancel  context.CancelFunc
	runErr  chan error
}

func start(t *testing.T) *env {
	t.Helper()
	link := &apptest.FakeLink{}
	return startWith(t, link, link)
}

// startWith runs the loop bound to bound; fake records the runtime's link actions.
func startWith(t *testing.T, fake *apptest.FakeLink, bound core.ChannelLink) *env {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	e := &env{
		o:       orch.New(64),
		link:    fake,
		view:    &apptest.FakeView{},
		list:    &apptest.FakeList{},
		history: &apptest.FakeHistory{},
		convs:   &apptest.FakeConversations{List: []domain.Conversation{{ID: 1, Name: "general", IsGroup: true}}},
		clock:   apptest.NewManualClock(),
		cancel:  cancel,
		runErr:  make(chan error, 1),
	}
	rt := app.NewRuntime(ctx, app.Deps{
		LocalUser:     apptest.LocalUser,
		Link:          bound,
		History:       e.history,
		Conversations: e.convs,
		Search:        &apptest.FakeSearch{},
		Uploader:      &apptest.FakeUploader{},
		Device:        &apptest.FakeDevice{},
		View:          e.view,
		List:          e.list,
		Clock:         e.clock,
		Poster:        e.o,
		Timings:       app.DefaultTimings(),
	})
	e.o.Bind(rt, bound)
	go func() { e.runErr <- e.o.Run(ctx) }()
	t.Cleanup(cancel)
	return e
}

// sync waits until the loop has handled everything posted so far.
func (e *env) sync(t *testing.T) app.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), apptest.WaitTimeout)
	defer cancel()
	snap, err := e.o.Snapshot(ctx)
	require.NoError(t, err)
	return snap
}

func (e *env) advance(t *testing.T, d time.Duration) {
	t.Helper()
	e.clock.Advance(d, e.o.Post)
	e.sync(t)
}

func (e *env) open(t *testing.T, id domain.ConversationID) {
	t.Helper()
	e.o.SelectConversation(id)
	require.Eventually(t, func() bool {
		snap, err := e.o.Snapshot(context.Background())
		return err == nil && snap.ActiveID == id && snap.SwitchState == "active"
	}, apptest.WaitTimeout, 5*time.Millisecond)
}

func TestLoopLoadsDirectoryOnStart(t *testing.T) {
	e := start(t)
	require.Eventually(t, func() bool {
		snap, err := e.o.Snapshot(context.Background())
		return err == nil && snap.Conversations == 1
	}, apptest.WaitTimeout, 5*time.Millisecond)
	assert.Equal(t, "general", e.list.Conversations()[0].Name)
}

func TestLoopSwitchAndReceive(t *testing.T) {
	e := start(t)
	e.history.Set(1, domain.Message{ID: 10, ConversationID: 1, Content: "a", Type: domain.MessageText})
	e.open(t, 1)

	e.o.OnMessage(domain.Message{ID: 11, ConversationID: 1, Content: "b", Type: domain.MessageText})
	e.o.OnMessage(domain.Message{ID: 11, ConversationID: 1, Content: "b", Type: domain.MessageText})
	e.sync(t)

	assert.Equal(t, []domain.MessageID{10, 11}, e.view.MessageIDs())
	require.Eventually(t, func() bool { return e.view.Header().Name == "general" }, apptest.WaitTimeout, 5*time.Millisecond)
}

func TestLoopTypingBurst(t *testing.T) {
	e := start(t)
	e.open(t, 1)

	for range 5 {
		e.o.InputChanged()
		e.sync(t)
		e.advance(t, 200*time.Millisecond)
	}
	e.advance(t, 2*time.Second)

	var flags []bool
	for _, a := range e.link.Of(apptest.ActTyping) {
		flags = append(flags, a.IsTyping)
	}
	assert.Equal(t, []bool{true, false}, flags)
}

func TestLoopSendIgnoresBlank(t *testing.T) {
	e := start(t)
	e.open(t, 1)

	e.o.SendText("   ")
	e.o.SendText("hello")
	e.sync(t)

	sent := e.link.Of(apptest.ActMessage)
	require.Len(t, sent, 1)
	assert.Equal(t, "hello", sent[0].Message.Content)
}

func TestLoopTeardownLeavesAndCloses(t *testing.T) {
	e := start(t)
	e.open(t, 1)

	e.o.Teardown()
	select {
	case err := <-e.runErr:
		require.NoError(t, err)
	case <-time.After(apptest.WaitTimeout):
		t.Fatal("loop did not stop")
	}

	assert.True(t, e.link.Closed())
	assert.True(t, slices.ContainsFunc(e.link.Actions(), func(a apptest.Action) bool {
		return a.Kind == apptest.ActLeave && a.ConversationID == 1
	}))

	_, err := e.o.Snapshot(context.Background())
	assert.ErrorIs(t, err, orch.ErrStopped)
	// Posting after stop must not block.
	e.o.SendText("late")
}

func TestLoopStopsOnCancel(t *testing.T) {
	e := start(t)
	e.sync(t)
	e.cancel()

	select {
	case err := <-e.runErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(apptest.WaitTimeout):
		t.Fatal("loop did not stop")
	}
	assert.True(t, e.link.Closed())
}

// pushingLink keeps delivering messages into the sink until Close, and Close
// waits for the pusher to return, like channel.Link waiting on its read pump.
type pushingLink struct {
	*apptest.FakeLink
	quit   chan struct{}
	exited chan struct{}
}

func (l *pushingLink) push(o *orch.Orchestrator) {
	defer close(l.exited)
	for i := 1; ; i++ {
		select {
		case <-l.quit:
			return
		default:
		}
		o.OnMessage(domain.Message{ID: domain.MessageID(i), ConversationID: 1, Content: "burst", Type: domain.MessageText})
	}
}

func (l *pushingLink) Close() {
	close(l.quit)
	<-l.exited
	l.FakeLink.Close()
}

func TestLoopTeardownDuringIncomingBurst(t *testing.T) {
	link := &pushingLink{FakeLink: &apptest.FakeLink{}, quit: make(chan struct{}), exited: make(chan struct{})}
	e := startWith(t, link.FakeLink, link)
	e.open(t, 1)

	go link.push(e.o)
	require.Eventually(t, func() bool { return len(e.view.Messages()) > 64 }, apptest.WaitTimeout, time.Millisecond)

	e.o.Teardown()
	select {
	case err := <-e.runErr:
		require.NoError(t, err)
	case <-time.After(apptest.WaitTimeout):
		t.Fatal("shutdown hung with a full queue")
	}
	assert.True(t, e.link.Closed())
}
