package domain

// ConversationID is the server-assigned conversation identifier. Zero means none.
type ConversationID int64

// Conversation is directory metadata for one conversation the user takes part in.
type Conversation struct {
	ID               ConversationID `json:"id"`
	Name             string         `json:"name"`
	IsGroup          bool           `json:"is_group"`
	AvatarURL        string         `json:"avatar_url,omitempty"`
	UpdatedAt        Timestamp      `json:"updated_at"`
	ParticipantCount int            `json:"participant_count"`
}

// TypingNotice is a user_typing event.
type TypingNotice struct {
	ConversationID ConversationID `json:"conversation_id"`
	UserID         UserID         `json:"user_id"`
	Username       string         `json:"username"`
	IsTyping       bool           `json:"is_typing"`
}
