// Package channel is the websocket ChannelLink: one long-lived connection to
// the chat server, redialed by a paced supervisor whenever it drops.
package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

var ErrAlreadyConnected = errors.New("link already started")

type Options struct {
	URL            string
	Cookie         string
	ClientID       string
	ReadLimit      int64
	PingPeriod     time.Duration
	WriteWait      time.Duration
	RedialInterval time.Duration
	SendBuffer     int
}

func (o *Options) withDefaults() {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32 << 10
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.RedialInterval <= 0 {
		o.RedialInterval = 2 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
}

// Link implements core.ChannelLink. Outgoing actions are fire and forget:
// while disconnected, or when the send queue is full, they are dropped.
type Link struct {
	opts    Options
	sink    core.ChannelSink
	dialer  *websocket.Dialer
	limiter *rate.Limiter

	mu      sync.Mutex
	conn    *wsConn
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewLink(opts Options, sink core.ChannelSink) *Link {
	opts.withDefaults()
	return &Link{
		opts:    opts,
		sink:    sink,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(opts.RedialInterval), 1),
	}
}

// Connect starts the dial supervisor and returns at once. Dial failures are
// retried at most once per redial interval until Close.
func (l *Link) Connect(ctx context.Context) error {
	if _, err := url.Parse(l.opts.URL); err != nil {
		return fmt.Errorf("channel url: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.closed {
		return ErrAlreadyConnected
	}
	l.started = true
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go l.supervise(ctx)
	return nil
}

// Close flushes queued frames on a live connection, then stops redialing.
func (l *Link) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	c, cancel, done := l.conn, l.cancel, l.done
	l.mu.Unlock()

	if c != nil {
		c.finish()
		select {
		case <-done:
		case <-time.After(l.opts.WriteWait):
		}
	}
	if cancel != nil {
		cancel()
		<-done
	}
	log.Info().Str("module", "channel").Msg("link closed")
}

func (l *Link) supervise(ctx context.Context) {
	defer close(l.done)
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return
		}
		ws, err := l.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("module", "channel").Str("url", l.opts.URL).Msg("dial failed")
			continue
		}

		c := newConn(ws, l.opts.SendBuffer)
		if !l.attach(c) {
			_ = ws.Close()
			return
		}
		log.Info().Str("module", "channel").Str("url", l.opts.URL).Msg("connected")
		l.sink.OnConnect()

		err = l.serve(ctx, c)
		l.detach()
		log.Info().Err(err).Str("module", "channel").Msg("disconnected")
		l.sink.OnDisconnect(fmt.Errorf("%w: %w", core.ErrTransport, err))

		if l.isClosed() || ctx.Err() != nil {
			return
		}
	}
}

func (l *Link) dial(ctx context.Context) (*websocket.Conn, error) {
	h := http.Header{}
	if l.opts.Cookie != "" {
		h.Set("Cookie", l.opts.Cookie)
	}
	if l.opts.ClientID != "" {
		h.Set("X-Client-Id", l.opts.ClientID)
	}
	ws, resp, err := l.dialer.DialContext(ctx, l.opts.URL, h)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func (l *Link) serve(ctx context.Context, c *wsConn) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.readPump(gctx, c) })
	g.Go(func() error { return l.writePump(gctx, c) })
	g.Go(func() error {
		<-gctx.Done()
		_ = c.ws.Close()
		return nil
	})
	return g.Wait()
}

func (l *Link) attach(c *wsConn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.conn = c
	return true
}

func (l *Link) detach() {
	l.mu.Lock()
	c := l.conn
	l.conn = nil
	l.mu.Unlock()
	if c != nil {
		c.finish()
	}
}

func (l *Link) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Connected reports whether a connection is currently up.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

func (l *Link) JoinRoom(id domain.ConversationID) {
	l.send(roomFrame{Type: "join_conversation", ConversationID: id})
}

func (l *Link) LeaveRoom(id domain.ConversationID) {
	l.send(roomFrame{Type: "leave_conversation", ConversationID: id})
}

func (l *Link) PublishMessage(m domain.OutgoingMessage) {
	l.send(sendFrame{
		Type:           "send_message",
		ConversationID: m.ConversationID,
		Content:        m.Content,
		MessageType:    m.Type,
		FileData:       m.File,
	})
}

func (l *Link) PublishTyping(id domain.ConversationID, isTyping bool) {
	l.send(typingFrame{Type: "typing", ConversationID: id, IsTyping: isTyping})
}
