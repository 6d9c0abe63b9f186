// Package apptest holds in-memory collaborators for exercising the runtime.
package apptest

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

type ActionKind string

const (
	ActJoin    ActionKind = "join_conversation"
	ActLeave   ActionKind = "leave_conversation"
	ActMessage ActionKind = "send_message"
	ActTyping  ActionKind = "typing"
)

// Action is one outgoing channel action recorded by FakeLink.
type Action struct {
	Kind           ActionKind
	ConversationID domain.ConversationID
	IsTyping       bool
	Message        domain.OutgoingMessage
}

// FakeLink records every outgoing action in order.
type FakeLink struct {
	mu        sync.Mutex
	actions   []Action
	connected int
	closed    bool
}

func (l *FakeLink) Connect(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected++
	return nil
}

func (l *FakeLink) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *FakeLink) JoinRoom(id domain.ConversationID) {
	l.record(Action{Kind: ActJoin, ConversationID: id})
}

func (l *FakeLink) LeaveRoom(id domain.ConversationID) {
	l.record(Action{Kind: ActLeave, ConversationID: id})
}

func (l *FakeLink) PublishMessage(msg domain.OutgoingMessage) {
	l.record(Action{Kind: ActMessage, ConversationID: msg.ConversationID, Message: msg})
}

func (l *FakeLink) PublishTyping(id domain.ConversationID, isTyping bool) {
	l.record(Action{Kind: ActTyping, ConversationID: id, IsTyping: isTyping})
}

func (l *FakeLink) record(a Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, a)
}

func (l *FakeLink) Actions() []Action {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Action, len(l.actions))
	copy(out, l.actions)
	return out
}

// Of returns the recorded actions of one kind.
func (l *FakeLink) Of(kind ActionKind) []Action {
	var out []Action
	for _, a := range l.Actions() {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func (l *FakeLink) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// FakeView keeps the rendered state the runtime asked for.
type FakeView struct {
	mu         sync.Mutex
	messages   []domain.Message
	header     domain.Conversation
	typing     string
	notices    []core.Notice
	results    *domain.SearchResults
	recording  bool
	elapsed    time.Duration
	presence   []domain.Presence
	appendCall int
}

func (v *FakeView) ShowMessages(msgs []domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append([]domain.Message(nil), msgs...)
}

func (v *FakeView) AppendMessage(msg domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, msg)
	v.appendCall++
}

func (v *FakeView) SetHeader(conv domain.Conversation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.header = conv
}

func (v *FakeView) ShowTyping(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing = text
}

func (v *FakeView) ClearTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing = ""
}

func (v *FakeView) ShowNotice(n core.Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, n)
}

func (v *FakeView) ShowSearchResults(res domain.SearchResults) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results = &res
}

func (v *FakeView) ClearSearchResults() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results = nil
}

func (v *FakeView) ShowRecording(elapsed time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recording = true
	v.elapsed = elapsed
}

func (v *FakeView) HideRecording() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recording = false
}

func (v *FakeView) UpdatePresence(p domain.Presence) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.presence = append(v.presence, p)
}

func (v *FakeView) Messages() []domain.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Message(nil), v.messages...)
}

// MessageIDs lists the ids currently rendered, in order.
func (v *FakeView) MessageIDs() []domain.MessageID {
	var ids []domain.MessageID
	for _, m := range v.Messages() {
		ids = append(ids, m.ID)
	}
	return ids
}

func (v *FakeView) Header() domain.Conversation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.header
}

func (v *FakeView) Typing() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.typing
}

func (v *FakeView) Notices() []core.Notice {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]core.Notice(nil), v.notices...)
}

// Results returns the rendered search results, nil when cleared.
func (v *FakeView) Results() *domain.SearchResults {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.results
}

func (v *FakeView) Recording() (bool, time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.recording, v.elapsed
}

func (v *FakeView) Presence() []domain.Presence {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Presence(nil), v.presence...)
}

// FakeList records conversation-list updates.
type FakeList struct {
	mu       sync.Mutex
	convs    []domain.Conversation
	previews map[domain.ConversationID]string
}

func (l *FakeList) SetConversations(convs []domain.Conversation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.convs = append([]domain.Conversation(nil), convs...)
}

func (l *FakeList) UpdatePreview(id domain.ConversationID, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.previews == nil {
		l.previews = make(map[domain.ConversationID]string)
	}
	l.previews[id] = text
}

func (l *FakeList) Preview(id domain.ConversationID) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	text, ok := l.previews[id]
	return text, ok
}

func (l *FakeList) Conversations() []domain.Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Conversation(nil), l.convs...)
}
