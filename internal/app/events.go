package app

import (
	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

// Event is anything the session loop handles. Every suspension point of the
// runtime (channel delivery, request completion, timer expiry, user intent)
// arrives as exactly one Event.
type Event interface {
	event()
}

// Poster delivers events onto the session loop. Safe for concurrent use.
type Poster interface {
	Post(ev Event)
}

// User intents.
type (
	SelectConversation struct{ ID domain.ConversationID }
	StartChat          struct{ UserID domain.UserID }
	InputChanged       struct{}
	SendText           struct{ Content string }
	ToggleVoice        struct{}
	StopVoice          struct{}
	CancelVoice        struct{}
	QueryChanged       struct{ Query string }
	SnapshotRequest    struct{ Reply chan<- Snapshot }
	Teardown           struct{}
)

// Channel push events.
type (
	ChannelConnected    struct{}
	ChannelDisconnected struct{ Err error }
	MessageReceived     struct{ Message domain.Message }
	TypingReceived      struct{ Notice domain.TypingNotice }
	PresenceReceived    struct{ Presence domain.Presence }
	ChannelError        struct{ Message string }
)

// Request completions.
type (
	HistoryLoaded struct {
		ConversationID domain.ConversationID
		Seq            uint64
		Messages       []domain.Message
		Err            error
	}
	DirectoryLoaded struct {
		Conversations []domain.Conversation
		Err           error
	}
	ConversationCreated struct {
		Conversation domain.Conversation
		Err          error
	}
	SearchResolved struct {
		Seq     uint64
		Query   string
		Results domain.SearchResults
		Err     error
	}
	CaptureAcquired struct {
		RecordingID string
		Session     core.CaptureSession
		Err         error
	}
	UploadFinished struct {
		RecordingID string
		File        domain.FileRef
		Err         error
	}
)

// Timer expiries.
type (
	TypingIdle          struct{ Gen uint64 }
	RemoteTypingExpired struct {
		UserID domain.UserID
		Gen    uint64
	}
	SearchDue     struct{ Gen uint64 }
	RecordingTick struct{ RecordingID string }
)

func (SelectConversation) event() {}
func (StartChat) event() {}
func (InputChanged) event() {}
func (SendText) event() {}
func (ToggleVoice) event() {}
func (StopVoice) event() {}
func (CancelVoice) event() {}
func (QueryChanged) event() {}
func (SnapshotRequest) event() {}
func (Teardown) event() {}
func (ChannelConnected) event() {}
func (ChannelDisconnected) event() {}
func (MessageReceived) event() {}
func (TypingReceived) event() {}
func (PresenceReceived) event() {}
func (ChannelError) event() {}
func (HistoryLoaded) event() {}
func (DirectoryLoaded) event() {}
func (ConversationCreated) event() {}
func (SearchResolved) event() {}
func (CaptureAcquired) event() {}
func (UploadFinished) event() {}
func (TypingIdle) event() {}
func (RemoteTypingExpired) event() {}
func (SearchDue) event() {}
func (RecordingTick) event() {}
