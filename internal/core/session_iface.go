package core

import (
	"time"

	"github.com/dkeye/parley/internal/domain"
)

type NoticeKind string

const (
	NoticeTransport NoticeKind = "transport"
	NoticeRequest   NoticeKind = "request"
	NoticeDevice    NoticeKind = "device"
)

// Notice is a transient user-visible message.
type Notice struct {
	Kind NoticeKind
	Text string
}

// View renders the active conversation. Rendering itself is out of scope for
// the runtime; it only tells the view what changed.
type View interface {
	ShowMessages(msgs []domain.Message)
	AppendMessage(msg domain.Message)
	SetHeader(conv domain.Conversation)
	ShowTyping(text string)
	ClearTyping()
	ShowNotice(n Notice)
	ShowSearchResults(res domain.SearchResults)
	ClearSearchResults()
	ShowRecording(elapsed time.Duration)
	HideRecording()
	UpdatePresence(p domain.Presence)
}

// ConversationList is the sidebar of conversations.
type ConversationList interface {
	SetConversations(convs []domain.Conversation)
	UpdatePreview(id domain.ConversationID, text string)
}
