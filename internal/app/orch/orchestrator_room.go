package orch

import (
	"github.com/dkeye/parley/internal/app"
	"github.com/dkeye/parley/internal/domain"
)

func (o *Orchestrator) SelectConversation(id domain.ConversationID) {
	o.Post(app.SelectConversation{ID: id})
}

// StartChat opens a direct conversation with uid and switches to it.
func (o *Orchestrator) StartChat(uid domain.UserID) { o.Post(app.StartChat{UserID: uid}) }

func (o *Orchestrator) InputChanged() { o.Post(app.InputChanged{}) }

func (o *Orchestrator) SendText(content string) { o.Post(app.SendText{Content: content}) }

func (o *Orchestrator) Search(q string) { o.Post(app.QueryChanged{Query: q}) }

// Teardown stops the loop after leaving the active conversation.
func (o *Orchestrator) Teardown() { o.Post(app.Teardown{}) }
