package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

// Timings are the debounce and expiry windows of the runtime.
type Timings struct {
	TypingIdle     time.Duration
	TypingExpiry   time.Duration
	SearchDebounce time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		TypingIdle:     2 * time.Second,
		TypingExpiry:   6 * time.Second,
		SearchDebounce: 300 * time.Millisecond,
	}
}

// Deps are the collaborators of a Runtime.
type Deps struct {
	LocalUser     domain.User
	Link          core.ChannelLink
	History       core.HistoryService
	Conversations core.ConversationService
	Search        core.SearchService
	Uploader      core.Uploader
	Device        core.CaptureDevice
	View          core.View
	List          core.ConversationList
	Clock         Clock
	Poster        Poster
	Timings       Timings
}

// Snapshot is a read-only view of the session for status surfaces.
type Snapshot struct {
	LocalUser     domain.User           `json:"local_user"`
	ActiveID      domain.ConversationID `json:"active_conversation_id,omitempty"`
	SwitchState   string                `json:"switch_state"`
	ChannelState  string                `json:"channel_state"`
	MessageCount  int                   `json:"message_count"`
	Typing        bool                  `json:"typing"`
	VoiceState    string                `json:"voice_state"`
	Conversations int                   `json:"conversations"`
}

// Runtime wires the components around one Session and dispatches loop
// events to them. It is not safe for concurrent use: the Orchestrator calls
// Handle from its loop goroutine only.
type Runtime struct {
	Session       *Session
	Directory     *Directory
	Conversations *ConversationSession
	Stream        *MessageStream
	Typing        *TypingCoordinator
	Voice         *VoiceCapture
	Search        *SearchController

	link          core.ChannelLink
	view          core.View
	everConnected bool
}

func NewRuntime(ctx context.Context, d Deps) *Runtime {
	s := NewSession(d.LocalUser)
	dir := NewDirectory(ctx, d.Conversations, d.List, d.Poster)
	stream := NewMessageStream(s, d.Link, d.View, d.List)
	typing := NewTypingCoordinator(s, d.Link, d.View, d.Clock, d.Timings.TypingIdle, d.Timings.TypingExpiry)
	return &Runtime{
		Session:       s,
		Directory:     dir,
		Conversations: NewConversationSession(ctx, s, d.Link, d.History, d.Conversations, dir, stream, typing, d.View, d.Poster),
		Stream:        stream,
		Typing:        typing,
		Voice:         NewVoiceCapture(ctx, d.Device, d.Uploader, stream, d.View, d.Clock, d.Poster),
		Search:        NewSearchController(ctx, d.Search, d.View, d.Clock, d.Poster, d.Timings.SearchDebounce),
		link:          d.Link,
		view:          d.View,
	}
}

// Start kicks off the initial directory load.
func (r *Runtime) Start() {
	r.Directory.Refresh()
}

func (r *Runtime) Handle(ev Event) {
	switch e := ev.(type) {
	case SelectConversation:
		r.Conversations.Select(e.ID)
	case StartChat:
		r.Conversations.StartChat(e.UserID)
	case InputChanged:
		r.Typing.InputChanged()
	case SendText:
		r.sendText(e.Content)
	case ToggleVoice:
		r.Voice.Toggle()
	case StopVoice:
		r.Voice.Stop()
	case CancelVoice:
		r.Voice.Cancel()
	case QueryChanged:
		r.Search.QueryChanged(e.Query)
	case SnapshotRequest:
		e.Reply <- r.Snapshot()
	case Teardown:
		r.Teardown()

	case ChannelConnected:
		r.onConnected()
	case ChannelDisconnected:
		r.Session.setChannel(core.Disconnected)
		log.Warn().Err(e.Err).Str("module", "app.runtime").Msg("channel disconnected")
	case MessageReceived:
		r.Stream.AppendIncoming(e.Message)
	case TypingReceived:
		r.Typing.Incoming(e.Notice)
	case PresenceReceived:
		r.view.UpdatePresence(e.Presence)
	case ChannelError:
		log.Warn().Str("module", "app.runtime").Str("error", e.Message).Msg("channel error")
		r.view.ShowNotice(core.Notice{Kind: core.NoticeTransport, Text: "Error: " + e.Message})

	case HistoryLoaded:
		r.Conversations.OnHistoryLoaded(e)
	case DirectoryLoaded:
		r.Directory.OnLoaded(e)
		r.refreshHeader()
	case ConversationCreated:
		r.Conversations.OnCreated(e)
	case SearchResolved:
		r.Search.OnResolved(e)
	case CaptureAcquired:
		r.Voice.OnAcquired(e)
	case UploadFinished:
		r.Voice.OnUploaded(e)

	case TypingIdle:
		r.Typing.OnIdle(e)
	case RemoteTypingExpired:
		r.Typing.OnRemoteExpired(e)
	case SearchDue:
		r.Search.OnDue(e)
	case RecordingTick:
		r.Voice.OnTick(e)

	default:
		log.Warn().Str("module", "app.runtime").Interface("event", ev).Msg("unhandled event")
	}
}

func (r *Runtime) sendText(content string) {
	if err := r.Stream.SendOutgoing(content, domain.MessageText, nil); err != nil {
		log.Debug().Err(err).Str("module", "app.runtime").Msg("send rejected")
		return
	}
	r.Typing.Finish()
}

func (r *Runtime) onConnected() {
	r.Session.setChannel(core.Connected)
	reconnect := r.everConnected
	r.everConnected = true
	log.Info().Str("module", "app.runtime").Bool("reconnect", reconnect).Msg("channel connected")
	if !reconnect {
		if id, ok := r.Session.Active(); ok {
			r.link.JoinRoom(id)
		}
		return
	}
	r.Directory.Refresh()
	r.Conversations.Reload()
}

// refreshHeader re-renders the header once the directory knows the active
// conversation, which may load after its history.
func (r *Runtime) refreshHeader() {
	id, ok := r.Session.Active()
	if !ok || r.Session.State() != Active {
		return
	}
	if conv, ok := r.Directory.Lookup(id); ok {
		r.view.SetHeader(conv)
	}
}

// Teardown leaves the active room, ends any typing burst and releases the
// capture device.
func (r *Runtime) Teardown() {
	r.Conversations.Leave()
	r.Voice.Release()
	log.Info().Str("module", "app.runtime").Msg("session torn down")
}

func (r *Runtime) Snapshot() Snapshot {
	id, _ := r.Session.Active()
	return Snapshot{
		LocalUser:     r.Session.LocalUser(),
		ActiveID:      id,
		SwitchState:   r.Session.State().String(),
		ChannelState:  r.Session.Channel().String(),
		MessageCount:  len(r.Stream.messages),
		Typing:        r.Typing.IsTyping(),
		VoiceState:    r.Voice.State().String(),
		Conversations: len(r.Directory.order),
	}
}
