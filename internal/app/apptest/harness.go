package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/parley/internal/app"
	"github.com/dkeye/parley/internal/domain"
)

// Harness is a Runtime wired to fakes. The test plays the session loop:
// async completions land in Queue and are handled only when taken.
type Harness struct {
	T             testing.TB
	RT            *app.Runtime
	Link          *FakeLink
	View          *FakeView
	List          *FakeList
	History       *FakeHistory
	Conversations *FakeConversations
	Search        *FakeSearch
	Uploader      *FakeUploader
	Device        *FakeDevice
	Clock         *ManualClock
	Queue         *Queue
}

// LocalUser is the identity every harness runs as.
var LocalUser = domain.User{ID: 1, Username: "me"}

func NewHarness(t testing.TB) *Harness {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &Harness{
		T:             t,
		Link:          &FakeLink{},
		View:          &FakeView{},
		List:          &FakeList{},
		History:       &FakeHistory{},
		Conversations: &FakeConversations{},
		Search:        &FakeSearch{},
		Uploader:      &FakeUploader{},
		Device:        &FakeDevice{},
		Clock:         NewManualClock(),
		Queue:         NewQueue(),
	}
	h.RT = app.NewRuntime(ctx, app.Deps{
		LocalUser:     LocalUser,
		Link:          h.Link,
		History:       h.History,
		Conversations: h.Conversations,
		Search:        h.Search,
		Uploader:      h.Uploader,
		Device:        h.Device,
		View:          h.View,
		List:          h.List,
		Clock:         h.Clock,
		Poster:        h.Queue,
		Timings:       app.DefaultTimings(),
	})
	return h
}

func (h *Harness) Handle(evs ...app.Event) {
	for _, ev := range evs {
		h.RT.Handle(ev)
	}
}

// Advance moves the clock and handles every timer event that fires.
func (h *Harness) Advance(d time.Duration) {
	h.Clock.Advance(d, h.RT.Handle)
}

// Open selects a conversation and completes its history load.
func (h *Harness) Open(id domain.ConversationID) {
	h.T.Helper()
	h.Handle(app.SelectConversation{ID: id})
	h.Handle(Take[app.HistoryLoaded](h.T, h.Queue))
}
