package channel

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/domain"
)

type roomFrame struct {
	Type           string                `json:"type"`
	ConversationID domain.ConversationID `json:"conversation_id"`
}

type sendFrame struct {
	Type           string                `json:"type"`
	ConversationID domain.ConversationID `json:"conversation_id"`
	Content        string                `json:"content"`
	MessageType    domain.MessageType    `json:"message_type"`
	FileData       *domain.FileRef       `json:"file_data,omitempty"`
}

type typingFrame struct {
	Type           string                `json:"type"`
	ConversationID domain.ConversationID `json:"conversation_id"`
	IsTyping       bool                  `json:"is_typing"`
}

type errorFrame struct {
	Message string `json:"message"`
}

func (l *Link) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "channel").Msg("send marshal")
		return
	}

	l.mu.Lock()
	c := l.conn
	l.mu.Unlock()
	if c == nil {
		log.Debug().Str("module", "channel").RawJSON("frame", b).Msg("not connected, frame dropped")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "channel").RawJSON("frame", b).Msg("frame dropped")
	}
}

// dispatch decodes one incoming frame and hands it to the sink.
func (l *Link) dispatch(data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "channel").Msg("bad json")
		return
	}

	switch env.Type {
	case "new_message":
		var m domain.Message
		if l.decode(env.Type, data, &m) {
			l.sink.OnMessage(m)
		}
	case "user_typing":
		var n domain.TypingNotice
		if l.decode(env.Type, data, &n) {
			l.sink.OnTypingNotice(n)
		}
	case "user_status":
		var p domain.Presence
		if l.decode(env.Type, data, &p) {
			l.sink.OnPresence(p)
		}
	case "error":
		var e errorFrame
		if l.decode(env.Type, data, &e) {
			l.sink.OnError(e.Message)
		}
	case "joined_conversation":
		var r roomFrame
		if l.decode(env.Type, data, &r) {
			log.Info().Str("module", "channel").Int64("conversation", int64(r.ConversationID)).Msg("joined")
		}
	case "pong":
	default:
		log.Warn().Str("module", "channel").Str("type", env.Type).Msg("unknown frame")
	}
}

func (l *Link) decode(typ string, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Error().Err(err).Str("module", "channel").Str("type", typ).Msg("bad payload")
		return false
	}
	return true
}
