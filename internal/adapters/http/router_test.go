package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/parley/internal/app"
	"github.com/dkeye/parley/internal/config"
	"github.com/dkeye/parley/internal/domain"
)

type fakeController struct {
	mu       sync.Mutex
	snap     app.Snapshot
	err      error
	selected []domain.ConversationID
	sent     []string
}

func (f *fakeController) Snapshot(context.Context) (app.Snapshot, error) { return f.snap, f.err }

func (f *fakeController) SelectConversation(id domain.ConversationID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, id)
}

func (f *fakeController) SendText(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
}

func serve(t *testing.T, ctl Controller, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := SetupRouter(&config.Config{Mode: "release"}, ctl)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := serve(t, &fakeController{}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestSessionSnapshot(t *testing.T) {
	ctl := &fakeController{snap: app.Snapshot{
		LocalUser:    domain.User{ID: 1, Username: "me"},
		ActiveID:     3,
		SwitchState:  "active",
		ChannelState: "connected",
		MessageCount: 2,
		VoiceState:   "idle",
	}}
	w := serve(t, ctl, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, float64(3), got["active_conversation_id"])
	assert.Equal(t, "connected", got["channel_state"])
	assert.Equal(t, float64(2), got["message_count"])
}

func TestSessionUnavailable(t *testing.T) {
	w := serve(t, &fakeController{err: errors.New("stopped")}, http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSelectConversation(t *testing.T) {
	ctl := &fakeController{}
	w := serve(t, ctl, http.MethodPost, "/api/conversations/5/select", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []domain.ConversationID{5}, ctl.selected)

	for _, bad := range []string{"abc", "0", "-2"} {
		w = serve(t, ctl, http.MethodPost, "/api/conversations/"+bad+"/select", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
	assert.Len(t, ctl.selected, 1)
}

func TestSendMessage(t *testing.T) {
	ctl := &fakeController{}
	w := serve(t, ctl, http.MethodPost, "/api/messages", `{"content":"hello"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"hello"}, ctl.sent)

	w = serve(t, ctl, http.MethodPost, "/api/messages", `{"content":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = serve(t, ctl, http.MethodPost, "/api/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, ctl.sent, 1)
}
