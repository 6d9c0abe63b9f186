package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

// ConversationSession runs the conversation switch protocol:
//
//	leave(old) → active = new (Switching) → join(new) + fetch history(new)
//	history(new) arrives → replace list, merge buffered live messages → Active
//
// A history response is applied only if it answers the latest switch.
type ConversationSession struct {
	ctx     context.Context
	session *Session
	link    core.ChannelLink
	history core.HistoryService
	convs   core.ConversationService
	dir     *Directory
	stream  *MessageStream
	typing  *TypingCoordinator
	view    core.View
	poster  Poster
}

func NewConversationSession(
	ctx context.Context,
	s *Session,
	link core.ChannelLink,
	history core.HistoryService,
	convs core.ConversationService,
	dir *Directory,
	stream *MessageStream,
	typing *TypingCoordinator,
	view core.View,
	poster Poster,
) *ConversationSession {
	return &ConversationSession{
		ctx:     ctx,
		session: s,
		link:    link,
		history: history,
		convs:   convs,
		dir:     dir,
		stream:  stream,
		typing:  typing,
		view:    view,
		poster:  poster,
	}
}

func (c *ConversationSession) Select(id domain.ConversationID) {
	if id <= 0 {
		return
	}
	if old, ok := c.session.Active(); ok {
		c.link.LeaveRoom(old)
		c.typing.Finish()
		log.Info().Str("module", "app.conversation").Int64("conversation", int64(old)).Msg("left")
	}
	c.typing.ClearRemote()

	seq := c.session.beginSwitch(id)
	c.stream.Reset()
	c.link.JoinRoom(id)
	c.fetch(id, seq)
	log.Info().Str("module", "app.conversation").Int64("conversation", int64(id)).Uint64("seq", seq).Msg("switching")
}

// Reload re-fetches the active conversation in place, used after a reconnect.
// The current list stays visible until the history replaces it.
func (c *ConversationSession) Reload() {
	id, ok := c.session.Active()
	if !ok {
		return
	}
	seq := c.session.beginSwitch(id)
	c.link.JoinRoom(id)
	c.fetch(id, seq)
	log.Info().Str("module", "app.conversation").Int64("conversation", int64(id)).Uint64("seq", seq).Msg("reloading")
}

func (c *ConversationSession) fetch(id domain.ConversationID, seq uint64) {
	go func() {
		msgs, err := c.history.FetchMessages(c.ctx, id)
		c.poster.Post(HistoryLoaded{ConversationID: id, Seq: seq, Messages: msgs, Err: err})
	}()
}

func (c *ConversationSession) OnHistoryLoaded(ev HistoryLoaded) {
	if !c.session.IsActive(ev.ConversationID) || ev.Seq != c.session.currentSwitch() || c.session.State() != Switching {
		log.Debug().Str("module", "app.conversation").
			Int64("conversation", int64(ev.ConversationID)).
			Uint64("seq", ev.Seq).
			Msg("stale history response dropped")
		return
	}

	if ev.Err != nil {
		log.Warn().Err(ev.Err).Str("module", "app.conversation").Int64("conversation", int64(ev.ConversationID)).Msg("history load failed")
		c.view.ShowNotice(core.Notice{Kind: core.NoticeRequest, Text: "Failed to load messages"})
		c.stream.FlushPending()
	} else {
		c.stream.Replace(ev.Messages)
	}

	c.session.markActive()
	if conv, ok := c.dir.Lookup(ev.ConversationID); ok {
		c.view.SetHeader(conv)
	}
	log.Info().Str("module", "app.conversation").Int64("conversation", int64(ev.ConversationID)).Msg("active")
}

// Leave is the teardown path: best-effort leave of the active room.
func (c *ConversationSession) Leave() {
	old, ok := c.session.Active()
	if !ok {
		return
	}
	c.link.LeaveRoom(old)
	c.typing.Finish()
	c.typing.ClearRemote()
	c.session.clearActive()
	log.Info().Str("module", "app.conversation").Int64("conversation", int64(old)).Msg("left")
}

// StartChat opens (or reuses) a direct conversation with one user.
func (c *ConversationSession) StartChat(uid domain.UserID) {
	if uid <= 0 {
		return
	}
	go func() {
		conv, err := c.convs.CreateConversation(c.ctx, []domain.UserID{uid}, false)
		c.poster.Post(ConversationCreated{Conversation: conv, Err: err})
	}()
}

func (c *ConversationSession) OnCreated(ev ConversationCreated) {
	if ev.Err != nil {
		log.Warn().Err(ev.Err).Str("module", "app.conversation").Msg("create conversation failed")
		c.view.ShowNotice(core.Notice{Kind: core.NoticeRequest, Text: "Failed to create conversation"})
		return
	}
	c.dir.Put(ev.Conversation)
	c.dir.Refresh()
	c.Select(ev.Conversation.ID)
}
