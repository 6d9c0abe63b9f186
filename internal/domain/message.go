package domain

import "strings"

type MessageID int64

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageVoice MessageType = "voice"
)

const (
	previewMaxRunes = 50
	voicePreview    = "🎤 Voice message"
)

// FileRef points at an uploaded blob.
type FileRef struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Message is immutable once received.
type Message struct {
	ID             MessageID      `json:"id"`
	ConversationID ConversationID `json:"conversation_id"`
	SenderID       UserID         `json:"sender_id"`
	SenderUsername string         `json:"sender_username"`
	SenderAvatar   string         `json:"sender_avatar,omitempty"`
	Content        string         `json:"content"`
	Type           MessageType    `json:"message_type"`
	FileURL        string         `json:"file_url,omitempty"`
	FileName       string         `json:"file_name,omitempty"`
	FileSize       int64          `json:"file_size,omitempty"`
	CreatedAt      Timestamp      `json:"created_at"`
	EditedAt       *Timestamp     `json:"edited_at,omitempty"`
	IsDeleted      bool           `json:"is_deleted,omitempty"`
}

// File returns the attached blob, if any.
func (m Message) File() (FileRef, bool) {
	if m.FileURL == "" {
		return FileRef{}, false
	}
	return FileRef{URL: m.FileURL, Name: m.FileName, Size: m.FileSize}, true
}

// Preview is the conversation-list text for a message.
func Preview(t MessageType, content string) string {
	if t == MessageVoice {
		return voicePreview
	}
	runes := []rune(content)
	if len(runes) > previewMaxRunes {
		return string(runes[:previewMaxRunes]) + "..."
	}
	return content
}

// OutgoingMessage is a send_message request. The server assigns id and timestamps.
type OutgoingMessage struct {
	ConversationID ConversationID
	Content        string
	Type           MessageType
	File           *FileRef
}

// Valid reports whether the message satisfies the client-side send rules:
// text needs non-blank content, voice needs a file reference with a URL.
func (m OutgoingMessage) Valid() bool {
	switch m.Type {
	case MessageText:
		return strings.TrimSpace(m.Content) != ""
	case MessageVoice:
		return m.File != nil && m.File.URL != ""
	default:
		return false
	}
}
