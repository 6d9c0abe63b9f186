package app

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

type remoteTyper struct {
	username string
	gen      uint64
	stop     func()
}

// TypingCoordinator debounces the local typing flag and renders remote
// typing notices for the active conversation.
//
// A burst starts with one true publish on the first input change and ends
// with exactly one false publish, on idle expiry, on send, or on switch-away.
type TypingCoordinator struct {
	session *Session
	link    core.ChannelLink
	view    core.View
	clock   Clock
	idle    time.Duration
	expiry  time.Duration

	typing    bool
	burstConv domain.ConversationID
	gen       uint64
	stopIdle  func()

	remote    map[domain.UserID]*remoteTyper
	remoteGen uint64
}

func NewTypingCoordinator(s *Session, link core.ChannelLink, view core.View, clock Clock, idle, expiry time.Duration) *TypingCoordinator {
	return &TypingCoordinator{
		session: s,
		link:    link,
		view:    view,
		clock:   clock,
		idle:    idle,
		expiry:  expiry,
		remote:  make(map[domain.UserID]*remoteTyper),
	}
}

func (t *TypingCoordinator) IsTyping() bool { return t.typing }

// InputChanged handles a local keystroke.
func (t *TypingCoordinator) InputChanged() {
	id, ok := t.session.Active()
	if !ok {
		return
	}
	if !t.typing {
		t.typing = true
		t.burstConv = id
		t.link.PublishTyping(id, true)
		log.Debug().Str("module", "app.typing").Int64("conversation", int64(id)).Msg("burst started")
	}
	t.cancelIdle()
	t.gen++
	t.stopIdle = t.clock.After(t.idle, TypingIdle{Gen: t.gen})
}

// OnIdle handles the debounce timer.
func (t *TypingCoordinator) OnIdle(ev TypingIdle) {
	if ev.Gen != t.gen {
		return
	}
	t.Finish()
}

// Finish terminates a live burst. It is a no-op outside a burst.
func (t *TypingCoordinator) Finish() {
	t.cancelIdle()
	if !t.typing {
		return
	}
	t.typing = false
	t.link.PublishTyping(t.burstConv, false)
	log.Debug().Str("module", "app.typing").Int64("conversation", int64(t.burstConv)).Msg("burst finished")
	t.burstConv = 0
}

// Incoming renders a remote notice for the active conversation. Notices for
// other conversations and our own echoes are ignored.
func (t *TypingCoordinator) Incoming(n domain.TypingNotice) {
	if !t.session.IsActive(n.ConversationID) || n.UserID == t.session.LocalUser().ID {
		return
	}
	if prev, ok := t.remote[n.UserID]; ok {
		prev.stop()
		delete(t.remote, n.UserID)
	}
	if n.IsTyping {
		t.remoteGen++
		t.remote[n.UserID] = &remoteTyper{
			username: n.Username,
			gen:      t.remoteGen,
			stop:     t.clock.After(t.expiry, RemoteTypingExpired{UserID: n.UserID, Gen: t.remoteGen}),
		}
	}
	t.render()
}

// OnRemoteExpired drops a typing entry that was never cleared by its sender.
func (t *TypingCoordinator) OnRemoteExpired(ev RemoteTypingExpired) {
	entry, ok := t.remote[ev.UserID]
	if !ok || entry.gen != ev.Gen {
		return
	}
	delete(t.remote, ev.UserID)
	log.Debug().Str("module", "app.typing").Int64("user", int64(ev.UserID)).Msg("remote typing expired")
	t.render()
}

// ClearRemote forgets every remote typer, used when navigating away.
func (t *TypingCoordinator) ClearRemote() {
	for uid, entry := range t.remote {
		entry.stop()
		delete(t.remote, uid)
	}
	t.view.ClearTyping()
}

func (t *TypingCoordinator) render() {
	if len(t.remote) == 0 {
		t.view.ClearTyping()
		return
	}
	t.view.ShowTyping(TypingText(t.typers()))
}

func (t *TypingCoordinator) typers() []string {
	names := make([]string, 0, len(t.remote))
	for _, entry := range t.remote {
		names = append(names, entry.username)
	}
	sort.Strings(names)
	return names
}

func (t *TypingCoordinator) cancelIdle() {
	if t.stopIdle != nil {
		t.stopIdle()
		t.stopIdle = nil
	}
}

// TypingText is the indicator line for the given remote typers.
func TypingText(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s is typing…", names[0])
	case 2:
		return fmt.Sprintf("%s and %s are typing…", names[0], names[1])
	default:
		return "Several people are typing…"
	}
}
