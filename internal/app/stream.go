package app

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

// MessageStream owns the rendered message list of the active conversation.
// Messages are appended in channel arrival order and never reordered. A
// message id is rendered at most once per list; the seen set is reset on
// every wholesale replace.
type MessageStream struct {
	session *Session
	link    core.ChannelLink
	view    core.View
	list    core.ConversationList

	messages []domain.Message
	seen     map[domain.MessageID]struct{}
	// pending holds live messages that arrived while a history load was in flight.
	pending []domain.Message
}

func NewMessageStream(s *Session, link core.ChannelLink, view core.View, list core.ConversationList) *MessageStream {
	return &MessageStream{
		session: s,
		link:    link,
		view:    view,
		list:    list,
		seen:    make(map[domain.MessageID]struct{}),
	}
}

// AppendIncoming routes a pushed message: the conversation list always gets
// the preview, the active view gets the message itself.
func (m *MessageStream) AppendIncoming(msg domain.Message) {
	m.list.UpdatePreview(msg.ConversationID, domain.Preview(msg.Type, msg.Content))

	if !m.session.IsActive(msg.ConversationID) {
		log.Debug().Str("module", "app.stream").
			Int64("conversation", int64(msg.ConversationID)).
			Int64("message", int64(msg.ID)).
			Msg("message for inactive conversation")
		return
	}

	if m.session.State() == Switching {
		m.pending = append(m.pending, msg)
		log.Debug().Str("module", "app.stream").
			Int64("message", int64(msg.ID)).
			Int("pending", len(m.pending)).
			Msg("buffered until history arrives")
		return
	}

	if m.add(msg) {
		m.view.AppendMessage(msg)
	}
}

// Reset empties the list for a conversation switch.
func (m *MessageStream) Reset() {
	m.messages = nil
	m.pending = nil
	m.seen = make(map[domain.MessageID]struct{})
	m.view.ShowMessages(nil)
}

// Replace substitutes the history for the current list, then merges the
// buffered live messages the history does not already contain.
func (m *MessageStream) Replace(history []domain.Message) {
	m.messages = make([]domain.Message, 0, len(history)+len(m.pending))
	m.seen = make(map[domain.MessageID]struct{}, len(history))
	for _, msg := range history {
		m.add(msg)
	}
	merged := 0
	for _, msg := range m.pending {
		if m.add(msg) {
			merged++
		}
	}
	log.Info().Str("module", "app.stream").
		Int("history", len(history)).
		Int("merged", merged).
		Int("buffered", len(m.pending)).
		Msg("message list replaced")
	m.pending = nil
	m.view.ShowMessages(m.Messages())
}

// FlushPending renders the buffered live messages after a failed history load.
func (m *MessageStream) FlushPending() {
	for _, msg := range m.pending {
		if m.add(msg) {
			m.view.AppendMessage(msg)
		}
	}
	m.pending = nil
}

// SendOutgoing publishes a message to the active conversation. Nothing is
// appended locally: the message becomes visible when the channel echoes it.
// Rejections are returned for the caller's logs and never surfaced.
func (m *MessageStream) SendOutgoing(content string, t domain.MessageType, file *domain.FileRef) error {
	id, ok := m.session.Active()
	if !ok {
		return core.ErrNoActiveConversation
	}
	out := domain.OutgoingMessage{
		ConversationID: id,
		Content:        strings.TrimSpace(content),
		Type:           t,
		File:           file,
	}
	if !out.Valid() {
		return core.ErrInvalidMessage
	}
	m.link.PublishMessage(out)
	log.Info().Str("module", "app.stream").
		Int64("conversation", int64(id)).
		Str("type", string(t)).
		Msg("message published")
	return nil
}

// Messages returns a copy of the rendered list.
func (m *MessageStream) Messages() []domain.Message {
	out := make([]domain.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *MessageStream) add(msg domain.Message) bool {
	if msg.ID > 0 {
		if _, dup := m.seen[msg.ID]; dup {
			log.Debug().Str("module", "app.stream").Int64("message", int64(msg.ID)).Msg("duplicate dropped")
			return false
		}
		m.seen[msg.ID] = struct{}{}
	}
	m.messages = append(m.messages, msg)
	return true
}
