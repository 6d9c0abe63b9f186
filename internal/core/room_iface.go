package core

import (
	"context"

	"github.com/dkeye/parley/internal/domain"
)

// HistoryService loads the message history of one conversation.
type HistoryService interface {
	FetchMessages(ctx context.Context, id domain.ConversationID) ([]domain.Message, error)
}

// ConversationService lists and creates conversations.
type ConversationService interface {
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	CreateConversation(ctx context.Context, participants []domain.UserID, isGroup bool) (domain.Conversation, error)
}

// SearchService runs a remote search query.
type SearchService interface {
	Search(ctx context.Context, query string) (domain.SearchResults, error)
}

// Uploader stores a captured voice payload and returns where it lives.
type Uploader interface {
	UploadVoice(ctx context.Context, payload []byte) (domain.FileRef, error)
}
