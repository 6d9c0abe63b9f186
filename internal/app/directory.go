package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

// Directory is the local copy of conversation metadata used for headers.
// It is refreshed at startup, after creating a conversation and on reconnect.
type Directory struct {
	ctx    context.Context
	svc    core.ConversationService
	list   core.ConversationList
	poster Poster

	byID  map[domain.ConversationID]domain.Conversation
	order []domain.ConversationID
}

func NewDirectory(ctx context.Context, svc core.ConversationService, list core.ConversationList, poster Poster) *Directory {
	return &Directory{
		ctx:    ctx,
		svc:    svc,
		list:   list,
		poster: poster,
		byID:   make(map[domain.ConversationID]domain.Conversation),
	}
}

func (d *Directory) Refresh() {
	go func() {
		convs, err := d.svc.ListConversations(d.ctx)
		d.poster.Post(DirectoryLoaded{Conversations: convs, Err: err})
	}()
}

func (d *Directory) OnLoaded(ev DirectoryLoaded) {
	if ev.Err != nil {
		log.Warn().Err(ev.Err).Str("module", "app.directory").Msg("conversation list not refreshed")
		return
	}
	d.byID = make(map[domain.ConversationID]domain.Conversation, len(ev.Conversations))
	d.order = d.order[:0]
	for _, c := range ev.Conversations {
		if _, dup := d.byID[c.ID]; !dup {
			d.order = append(d.order, c.ID)
		}
		d.byID[c.ID] = c
	}
	log.Info().Str("module", "app.directory").Int("conversations", len(d.order)).Msg("directory refreshed")
	d.list.SetConversations(d.All())
}

// Put inserts or replaces one entry without a round trip.
func (d *Directory) Put(c domain.Conversation) {
	if _, ok := d.byID[c.ID]; !ok {
		d.order = append([]domain.ConversationID{c.ID}, d.order...)
	}
	d.byID[c.ID] = c
	d.list.SetConversations(d.All())
}

func (d *Directory) Lookup(id domain.ConversationID) (domain.Conversation, bool) {
	c, ok := d.byID[id]
	return c, ok
}

func (d *Directory) All() []domain.Conversation {
	out := make([]domain.Conversation, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}
