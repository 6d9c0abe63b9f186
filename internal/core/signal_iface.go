package core

import (
	"context"

	"github.com/dkeye/parley/internal/domain"
)

// Frame is a raw binary payload.
type Frame []byte

// JoinFrames concatenates frames in order into one payload.
func JoinFrames(frames []Frame) []byte {
	n := 0
	for _, f := range frames {
		n += len(f)
	}
	out := make([]byte, 0, n)
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

// ChannelState is the connectivity of the ChannelLink.
type ChannelState int

const (
	Disconnected ChannelState = iota
	Connected
)

func (s ChannelState) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// ChannelLink owns the single bidirectional connection.
// All outgoing actions are fire-and-forget; a dropped publish is a silent loss.
type ChannelLink interface {
	// Connect starts the link; reconnects are the link's own business.
	Connect(ctx context.Context) error
	Close()

	JoinRoom(id domain.ConversationID)
	LeaveRoom(id domain.ConversationID)
	PublishMessage(msg domain.OutgoingMessage)
	PublishTyping(id domain.ConversationID, isTyping bool)
}

// ChannelSink receives the link's push events. Implementations must not block.
type ChannelSink interface {
	OnConnect()
	OnDisconnect(err error)
	OnMessage(msg domain.Message)
	OnTypingNotice(n domain.TypingNotice)
	OnPresence(p domain.Presence)
	OnError(message string)
}
