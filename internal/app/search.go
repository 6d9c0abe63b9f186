package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/core"
)

// SearchController debounces query input and renders the response of the
// latest issued query only.
type SearchController struct {
	ctx      context.Context
	svc      core.SearchService
	view     core.View
	clock    Clock
	poster   Poster
	debounce time.Duration

	query  string
	gen    uint64
	stop   func()
	issued uint64
}

func NewSearchController(ctx context.Context, svc core.SearchService, view core.View, clock Clock, poster Poster, debounce time.Duration) *SearchController {
	return &SearchController{
		ctx:      ctx,
		svc:      svc,
		view:     view,
		clock:    clock,
		poster:   poster,
		debounce: debounce,
	}
}

// QueryChanged restarts the debounce window. A blank query clears results
// at once and invalidates anything in flight.
func (s *SearchController) QueryChanged(q string) {
	s.cancel()
	s.gen++
	if strings.TrimSpace(q) == "" {
		s.query = ""
		s.issued++
		s.view.ClearSearchResults()
		return
	}
	s.query = q
	s.stop = s.clock.After(s.debounce, SearchDue{Gen: s.gen})
}

// OnDue issues the debounced query.
func (s *SearchController) OnDue(ev SearchDue) {
	if ev.Gen != s.gen || s.query == "" {
		return
	}
	s.stop = nil
	s.issued++
	seq, q := s.issued, s.query
	log.Debug().Str("module", "app.search").Uint64("seq", seq).Str("query", q).Msg("search issued")

	go func() {
		res, err := s.svc.Search(s.ctx, q)
		s.poster.Post(SearchResolved{Seq: seq, Query: q, Results: res, Err: err})
	}()
}

// OnResolved renders a response if it belongs to the latest issued query.
func (s *SearchController) OnResolved(ev SearchResolved) {
	if ev.Seq != s.issued {
		log.Debug().Str("module", "app.search").Uint64("seq", ev.Seq).Uint64("latest", s.issued).Msg("stale search response dropped")
		return
	}
	if ev.Err != nil {
		log.Warn().Err(ev.Err).Str("module", "app.search").Str("query", ev.Query).Msg("search failed")
		s.view.ShowNotice(core.Notice{Kind: core.NoticeRequest, Text: "Search failed"})
		return
	}
	s.view.ShowSearchResults(ev.Results)
}

func (s *SearchController) cancel() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}
