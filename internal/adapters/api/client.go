// Package api is the REST client for the chat server's request/response
// collaborators: history, directory, conversation creation, search and
// voice upload.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

const (
	voiceField   = "voice"
	maxErrorBody = 512
)

// voiceContentTypes maps a capture format to the part's content type.
var voiceContentTypes = map[string]string{
	"webm": "audio/webm",
	"ogg":  "audio/ogg",
	"wav":  "audio/wav",
}

type Options struct {
	// BaseURL is the server root; request paths are rooted at BaseURL + "/api".
	BaseURL  string
	Cookie   string
	ClientID string
	Timeout  time.Duration
	// VoiceFormat names the container the capture device produces; it picks
	// the upload's filename and content type. Defaults to webm.
	VoiceFormat string
}

// Client implements core.HistoryService, core.ConversationService,
// core.SearchService and core.Uploader. Safe for concurrent use.
type Client struct {
	base       string
	cookie     string
	clientID   string
	httpClient *http.Client

	voiceFilename    string
	voiceContentType string
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	format := strings.ToLower(strings.TrimSpace(opts.VoiceFormat))
	if format == "" {
		format = "webm"
	}
	contentType, ok := voiceContentTypes[format]
	if !ok {
		contentType = "application/octet-stream"
	}
	return &Client{
		base:       strings.TrimRight(opts.BaseURL, "/") + "/api",
		cookie:     opts.Cookie,
		clientID:   opts.ClientID,
		httpClient: &http.Client{Timeout: opts.Timeout},

		voiceFilename:    "voice_message." + format,
		voiceContentType: contentType,
	}
}

type messagesPage struct {
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
	Page     int              `json:"page"`
}

// FetchMessages returns the newest page of a conversation, oldest first.
func (c *Client) FetchMessages(ctx context.Context, id domain.ConversationID) ([]domain.Message, error) {
	path := "/conversations/" + strconv.FormatInt(int64(id), 10) + "/messages?page=1"
	var page messagesPage
	if err := c.doJSON(ctx, "fetch messages", http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	log.Debug().Str("module", "api").
		Int64("conversation", int64(id)).
		Int("messages", len(page.Messages)).
		Bool("has_more", page.HasMore).
		Msg("history fetched")
	return page.Messages, nil
}

func (c *Client) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	if err := c.doJSON(ctx, "list conversations", http.MethodGet, "/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

type createRequest struct {
	ParticipantIDs []domain.UserID `json:"participant_ids"`
	IsGroup        bool            `json:"is_group"`
	Name           string          `json:"name,omitempty"`
}

// CreateConversation returns the existing direct conversation when there is one.
func (c *Client) CreateConversation(ctx context.Context, participants []domain.UserID, isGroup bool) (domain.Conversation, error) {
	var conv domain.Conversation
	req := createRequest{ParticipantIDs: participants, IsGroup: isGroup}
	if err := c.doJSON(ctx, "create conversation", http.MethodPost, "/conversations", req, &conv); err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func (c *Client) Search(ctx context.Context, q string) (domain.SearchResults, error) {
	var res domain.SearchResults
	path := "/search?" + url.Values{"q": {q}}.Encode()
	if err := c.doJSON(ctx, "search", http.MethodGet, path, nil, &res); err != nil {
		return domain.SearchResults{}, err
	}
	return res, nil
}

type uploadResponse struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}

// UploadVoice posts the recording as a multipart form and returns where it
// was stored.
func (c *Client) UploadVoice(ctx context.Context, data []byte) (domain.FileRef, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, voiceField, c.voiceFilename))
	h.Set("Content-Type", c.voiceContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return domain.FileRef{}, fmt.Errorf("upload voice: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return domain.FileRef{}, fmt.Errorf("upload voice: %w", err)
	}
	if err := mw.Close(); err != nil {
		return domain.FileRef{}, fmt.Errorf("upload voice: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/upload-voice", &body)
	if err != nil {
		return domain.FileRef{}, fmt.Errorf("upload voice: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out uploadResponse
	if err := c.do(req, "upload voice", &out); err != nil {
		return domain.FileRef{}, err
	}
	log.Info().Str("module", "api").Str("url", out.URL).Int64("size", out.Size).Msg("voice uploaded")
	return domain.FileRef{URL: out.URL, Name: out.OriginalName, Size: out.Size}, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, op, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	if c.clientID != "" {
		req.Header.Set("X-Client-Id", c.clientID)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		reqErr := &core.RequestError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		log.Warn().Str("module", "api").Str("op", op).Int("status", resp.StatusCode).Msg("request failed")
		return reqErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
