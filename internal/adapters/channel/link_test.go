package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

const wait = 2 * time.Second

type recordingSink struct {
	mu         sync.Mutex
	connects   int
	disconnect []error
	messages   []domain.Message
	typing     []domain.TypingNotice
	presence   []domain.Presence
	errors     []string
}

func (s *recordingSink) OnConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
}

func (s *recordingSink) OnDisconnect(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnect = append(s.disconnect, err)
}

func (s *recordingSink) OnMessage(m domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

func (s *recordingSink) OnTypingNotice(n domain.TypingNotice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing = append(s.typing, n)
}

func (s *recordingSink) OnPresence(p domain.Presence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence = append(s.presence, p)
}

func (s *recordingSink) OnError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

func (s *recordingSink) connectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

type server struct {
	*httptest.Server
	conns   chan *websocket.Conn
	headers chan http.Header
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{conns: make(chan *websocket.Conn, 8), headers: make(chan http.Header, 8)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.headers <- r.Header.Clone()
		s.conns <- ws
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *server) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *server) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-s.conns:
		t.Cleanup(func() { _ = ws.Close() })
		return ws
	case <-time.After(wait):
		t.Fatal("no connection")
		return nil
	}
}

func readFrame(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func connect(t *testing.T, srv *server, sink *recordingSink) (*Link, *websocket.Conn) {
	t.Helper()
	link := NewLink(Options{
		URL:            srv.wsURL(),
		Cookie:         "session=abc",
		ClientID:       "client-1",
		RedialInterval: 10 * time.Millisecond,
		WriteWait:      time.Second,
	}, sink)
	require.NoError(t, link.Connect(context.Background()))
	t.Cleanup(link.Close)
	ws := srv.accept(t)
	require.Eventually(t, link.Connected, wait, 5*time.Millisecond)
	return link, ws
}

func TestDialSendsAuthHeaders(t *testing.T) {
	srv := newServer(t)
	sink := &recordingSink{}
	connect(t, srv, sink)

	h := <-srv.headers
	assert.Equal(t, "session=abc", h.Get("Cookie"))
	assert.Equal(t, "client-1", h.Get("X-Client-Id"))
	require.Eventually(t, func() bool { return sink.connectCount() == 1 }, wait, 5*time.Millisecond)
}

func TestOutgoingFrames(t *testing.T) {
	srv := newServer(t)
	link, ws := connect(t, srv, &recordingSink{})

	link.JoinRoom(3)
	assert.Equal(t, map[string]any{"type": "join_conversation", "conversation_id": float64(3)}, readFrame(t, ws))

	link.PublishTyping(3, true)
	assert.Equal(t, map[string]any{"type": "typing", "conversation_id": float64(3), "is_typing": true}, readFrame(t, ws))

	link.PublishMessage(domain.OutgoingMessage{
		ConversationID: 3,
		Type:           domain.MessageVoice,
		File:           &domain.FileRef{URL: "/uploads/v.webm", Name: "voice_message.webm", Size: 12},
	})
	frame := readFrame(t, ws)
	assert.Equal(t, "send_message", frame["type"])
	assert.Equal(t, "voice", frame["message_type"])
	assert.Equal(t, map[string]any{"url": "/uploads/v.webm", "name": "voice_message.webm", "size": float64(12)}, frame["file_data"])

	link.LeaveRoom(3)
	assert.Equal(t, map[string]any{"type": "leave_conversation", "conversation_id": float64(3)}, readFrame(t, ws))
}

func TestIncomingFrames(t *testing.T) {
	srv := newServer(t)
	sink := &recordingSink{}
	_, ws := connect(t, srv, sink)

	frames := []string{
		`{"type":"new_message","id":7,"conversation_id":3,"sender_id":2,"sender_username":"alice","content":"hi","message_type":"text","created_at":"2024-05-01T10:20:30.123456"}`,
		`{"type":"user_typing","conversation_id":3,"user_id":2,"username":"alice","is_typing":true}`,
		`{"type":"user_status","user_id":2,"is_online":false,"last_seen":"2024-05-01T10:21:00"}`,
		`{"type":"error","message":"Unauthorized"}`,
		`{"type":"joined_conversation","conversation_id":3}`,
		`{"type":"pong"}`,
		`not json`,
	}
	for _, f := range frames {
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(f)))
	}

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.errors) == 1
	}, wait, 5*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.messages, 1)
	assert.Equal(t, domain.MessageID(7), sink.messages[0].ID)
	assert.Equal(t, 2024, sink.messages[0].CreatedAt.Year())
	assert.Equal(t, []domain.TypingNotice{{ConversationID: 3, UserID: 2, Username: "alice", IsTyping: true}}, sink.typing)
	require.Len(t, sink.presence, 1)
	assert.False(t, sink.presence[0].IsOnline)
	require.NotNil(t, sink.presence[0].LastSeen)
	assert.Equal(t, []string{"Unauthorized"}, sink.errors)
}

func TestRedialAfterDrop(t *testing.T) {
	srv := newServer(t)
	sink := &recordingSink{}
	_, ws := connect(t, srv, sink)

	require.NoError(t, ws.Close())
	srv.accept(t)

	require.Eventually(t, func() bool { return sink.connectCount() == 2 }, wait, 5*time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.disconnect, 1)
	assert.ErrorIs(t, sink.disconnect[0], core.ErrTransport)
}

func TestCloseFlushesQueuedFrames(t *testing.T) {
	srv := newServer(t)
	link, ws := connect(t, srv, &recordingSink{})

	link.LeaveRoom(9)
	link.Close()

	assert.Equal(t, "leave_conversation", readFrame(t, ws)["type"])
	assert.False(t, link.Connected())

	// Dropped silently once closed.
	link.JoinRoom(9)
}

func TestSendWhileDisconnectedIsDropped(t *testing.T) {
	link := NewLink(Options{URL: "ws://127.0.0.1:1/ws"}, &recordingSink{})
	link.JoinRoom(1)
	link.PublishTyping(1, false)
	link.Close()
	assert.False(t, link.Connected())
}
