package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/", Cookie: "session=abc", ClientID: "client-1"})
}

func TestFetchMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/3/messages", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "session=abc", r.Header.Get("Cookie"))
		assert.Equal(t, "client-1", r.Header.Get("X-Client-Id"))
		_, _ = io.WriteString(w, `{"messages":[
			{"id":1,"conversation_id":3,"content":"a","message_type":"text","created_at":"2024-05-01T10:00:00","file_url":null},
			{"id":2,"conversation_id":3,"content":"","message_type":"voice","file_url":"/uploads/x.webm","file_size":10,"created_at":"2024-05-01T10:01:00"}
		],"has_more":false,"page":1}`)
	})

	msgs, err := c.FetchMessages(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.MessageID(1), msgs[0].ID)
	ref, ok := msgs[1].File()
	require.True(t, ok)
	assert.Equal(t, "/uploads/x.webm", ref.URL)
}

func TestNon2xxIsRequestError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":"Unauthorized"}`)
	})

	_, err := c.FetchMessages(context.Background(), 3)
	var reqErr *core.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusForbidden, reqErr.Status)
	assert.Equal(t, "fetch messages", reqErr.Op)
	assert.Contains(t, reqErr.Body, "Unauthorized")
}

func TestNetworkFailureIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := NewClient(Options{BaseURL: srv.URL})
	srv.Close()

	_, err := c.ListConversations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list conversations")
}

func TestListConversations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":4,"name":"bob","is_group":false,"avatar_url":"","updated_at":"2024-05-01T10:00:00.5","participant_count":2}]`)
	})

	convs, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "bob", convs[0].Name)
	assert.Equal(t, 2, convs[0].ParticipantCount)
}

func TestCreateConversation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{float64(5)}, body["participant_ids"])
		assert.Equal(t, false, body["is_group"])
		_, _ = io.WriteString(w, `{"id":9,"name":"eve","is_group":false,"participant_count":2,"updated_at":"2024-05-01T10:00:00"}`)
	})

	conv, err := c.CreateConversation(context.Background(), []domain.UserID{5}, false)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationID(9), conv.ID)
}

func TestSearchEncodesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "a&b c", r.URL.Query().Get("q"))
		_, _ = io.WriteString(w, `{"users":[{"id":2,"username":"ab","is_online":true,"last_seen":null}],"messages":[]}`)
	})

	res, err := c.Search(context.Background(), "a&b c")
	require.NoError(t, err)
	require.Len(t, res.Users, 1)
	assert.Equal(t, "ab", res.Users[0].Username)
	assert.Nil(t, res.Users[0].LastSeen)
}

func TestUploadVoice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload-voice", r.URL.Path)
		assert.Equal(t, "session=abc", r.Header.Get("Cookie"))
		f, hdr, err := r.FormFile("voice")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "RIFFdata", string(data))
		assert.Equal(t, "voice_message.webm", hdr.Filename)
		assert.Equal(t, "audio/webm", hdr.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"filename":"u_voice_message.webm","original_name":"voice_message.webm","size":8,"url":"/uploads/u_voice_message.webm"}`)
	})

	ref, err := c.UploadVoice(context.Background(), []byte("RIFFdata"))
	require.NoError(t, err)
	assert.Equal(t, domain.FileRef{URL: "/uploads/u_voice_message.webm", Name: "voice_message.webm", Size: 8}, ref)
}

func TestUploadVoiceNamesPartAfterFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hdr, err := r.FormFile("voice")
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "voice_message.wav", hdr.Filename)
		assert.Equal(t, "audio/wav", hdr.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"url":"/uploads/v.wav","original_name":"voice_message.wav","size":4}`)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Options{BaseURL: srv.URL, VoiceFormat: "WAV"})

	ref, err := c.UploadVoice(context.Background(), []byte("RIFF"))
	require.NoError(t, err)
	assert.Equal(t, "voice_message.wav", ref.Name)
}

func TestUploadEmptyVoice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("voice")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Empty(t, data)
		_, _ = io.WriteString(w, `{"url":"/uploads/empty.webm","original_name":"voice_message.webm","size":0}`)
	})

	ref, err := c.UploadVoice(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/empty.webm", ref.URL)
}
