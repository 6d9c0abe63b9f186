package orch

import (
	"github.com/dkeye/parley/internal/app"
	"github.com/dkeye/parley/internal/domain"
)

// The Orchestrator is the channel's sink: pushes are turned into loop events.

func (o *Orchestrator) OnConnect() { o.Post(app.ChannelConnected{}) }

func (o *Orchestrator) OnDisconnect(err error) { o.Post(app.ChannelDisconnected{Err: err}) }

func (o *Orchestrator) OnMessage(m domain.Message) { o.Post(app.MessageReceived{Message: m}) }

func (o *Orchestrator) OnTypingNotice(n domain.TypingNotice) {
	o.Post(app.TypingReceived{Notice: n})
}

func (o *Orchestrator) OnPresence(p domain.Presence) { o.Post(app.PresenceReceived{Presence: p}) }

func (o *Orchestrator) OnError(msg string) { o.Post(app.ChannelError{Message: msg}) }
