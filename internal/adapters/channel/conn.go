package channel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/core"
)

var errLinkClosed = errors.New("link closed")

// wsConn is one dialed websocket. Outgoing frames go through a bounded
// queue drained by the write pump.
type wsConn struct {
	ws   *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newConn(ws *websocket.Conn, buffer int) *wsConn {
	return &wsConn{ws: ws, send: make(chan core.Frame, buffer)}
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errLinkClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

// finish stops accepting frames. The write pump flushes what is queued,
// then sends a close frame.
func (c *wsConn) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (l *Link) writePump(ctx context.Context, c *wsConn) error {
	ticker := time.NewTicker(l.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-c.send:
			if !ok {
				deadline := time.Now().Add(l.opts.WriteWait)
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
				log.Info().Str("module", "channel").Msg("writePump flushed and closed")
				return errLinkClosed
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(l.opts.WriteWait)); err != nil {
				return err
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "channel").Msg("writePump write error")
				return err
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(l.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "channel").Msg("writePump ping error")
				return err
			}
		}
	}
}

func (l *Link) readPump(ctx context.Context, c *wsConn) error {
	pongWait := l.opts.PingPeriod * 10 / 9
	c.ws.SetReadLimit(l.opts.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Str("module", "channel").Msg("readPump read error")
			return err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		l.dispatch(data)
	}
}
