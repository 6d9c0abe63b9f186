package apptest

import (
	"context"
	"sync"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

type historyResult struct {
	msgs []domain.Message
	err  error
}

// FakeHistory answers FetchMessages from canned per-conversation results.
type FakeHistory struct {
	mu      sync.Mutex
	results map[domain.ConversationID]historyResult
	calls   []domain.ConversationID
}

func (h *FakeHistory) Set(id domain.ConversationID, msgs ...domain.Message) {
	h.put(id, historyResult{msgs: msgs})
}

func (h *FakeHistory) Fail(id domain.ConversationID, err error) {
	h.put(id, historyResult{err: err})
}

func (h *FakeHistory) put(id domain.ConversationID, r historyResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.results == nil {
		h.results = make(map[domain.ConversationID]historyResult)
	}
	h.results[id] = r
}

func (h *FakeHistory) FetchMessages(_ context.Context, id domain.ConversationID) ([]domain.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, id)
	r := h.results[id]
	return append([]domain.Message(nil), r.msgs...), r.err
}

func (h *FakeHistory) Calls() []domain.ConversationID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.ConversationID(nil), h.calls...)
}

// FakeConversations serves a fixed conversation list and creates
// conversations with increasing ids.
type FakeConversations struct {
	mu      sync.Mutex
	List    []domain.Conversation
	ListErr error
	Created domain.Conversation
	Err     error

	listCalls int
	created   [][]domain.UserID
}

func (c *FakeConversations) ListConversations(context.Context) ([]domain.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listCalls++
	return append([]domain.Conversation(nil), c.List...), c.ListErr
}

func (c *FakeConversations) CreateConversation(_ context.Context, participants []domain.UserID, _ bool) (domain.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, participants)
	return c.Created, c.Err
}

func (c *FakeConversations) ListCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listCalls
}

func (c *FakeConversations) CreateCalls() [][]domain.UserID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]domain.UserID(nil), c.created...)
}

// FakeSearch answers every query through Fn, or with empty results.
type FakeSearch struct {
	mu      sync.Mutex
	Fn      func(q string) (domain.SearchResults, error)
	queries []string
}

func (s *FakeSearch) Search(_ context.Context, q string) (domain.SearchResults, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	fn := s.Fn
	s.mu.Unlock()
	if fn == nil {
		return domain.SearchResults{}, nil
	}
	return fn(q)
}

func (s *FakeSearch) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// FakeUploader accepts every payload and answers with Ref or Err.
type FakeUploader struct {
	mu       sync.Mutex
	Ref      domain.FileRef
	Err      error
	payloads [][]byte
}

func (u *FakeUploader) UploadVoice(_ context.Context, data []byte) (domain.FileRef, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.payloads = append(u.payloads, append([]byte(nil), data...))
	return u.Ref, u.Err
}

func (u *FakeUploader) Payloads() [][]byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([][]byte(nil), u.payloads...)
}

// FakeDevice hands out FakeCapture sessions and counts device handles.
type FakeDevice struct {
	mu       sync.Mutex
	Err      error
	Frames   []core.Frame
	StopErr  error
	sessions []*FakeCapture
}

func (d *FakeDevice) Acquire(context.Context) (core.CaptureSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	s := &FakeCapture{frames: d.Frames, stopErr: d.StopErr}
	d.sessions = append(d.sessions, s)
	return s, nil
}

// Acquired is the number of sessions opened so far.
func (d *FakeDevice) Acquired() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// Held is the number of sessions not yet stopped or aborted.
func (d *FakeDevice) Held() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.sessions {
		if !s.Released() {
			n++
		}
	}
	return n
}

type FakeCapture struct {
	mu       sync.Mutex
	frames   []core.Frame
	stopErr  error
	released bool
	aborted  bool
}

func (c *FakeCapture) Stop() ([]core.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	if c.stopErr != nil {
		return nil, c.stopErr
	}
	return c.frames, nil
}

func (c *FakeCapture) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	c.aborted = true
}

func (c *FakeCapture) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

func (c *FakeCapture) Aborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}
