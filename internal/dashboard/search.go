package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/couchcryptid/vegwatch-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ErrSuperseded is returned by a query that a newer query replaced before it
// completed.
var ErrSuperseded = errors.New("search superseded by a newer query")

// Search resolves free-text place queries. Each query waits out the debounce
// delay first; a newer query cancels any query still waiting or in flight,
// so only the latest query ever produces a result.
type Search struct {
	searcher domain.PlaceSearcher
	debounce time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewSearch creates a place search front. searcher may be nil, in which case
// every query yields no places.
func NewSearch(searcher domain.PlaceSearcher, debounce time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Search {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Search{
		searcher: searcher,
		debounce: debounce,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Enabled reports whether a place searcher is configured.
func (s *Search) Enabled() bool {
	return s.searcher != nil
}

// Query returns the places matching q. Searcher failures degrade to an empty
// result. The only errors are ErrSuperseded and the caller's own context
// error.
func (s *Search) Query(ctx context.Context, q string) ([]domain.Place, error) {
	ctx, gen, done := s.begin(ctx)
	defer done()

	q = strings.TrimSpace(q)
	if q == "" || s.searcher == nil {
		return []domain.Place{}, nil
	}

	if s.debounce > 0 {
		select {
		case <-ctx.Done():
			return nil, s.abort(ctx, gen)
		case <-s.clock.After(s.debounce):
		}
	}
	if !s.current(gen) {
		return nil, s.abort(ctx, gen)
	}

	places, err := s.searcher.SearchPlaces(ctx, q)
	if !s.current(gen) {
		return nil, s.abort(ctx, gen)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("place search failed", "error", err)
		s.metrics.SearchRequests.WithLabelValues("error").Inc()
		return []domain.Place{}, nil
	}
	if len(places) == 0 {
		s.metrics.SearchRequests.WithLabelValues("empty").Inc()
		return []domain.Place{}, nil
	}
	s.metrics.SearchRequests.WithLabelValues("success").Inc()
	return places, nil
}

// begin registers a new query, cancelling the previous one.
func (s *Search) begin(parent context.Context) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	return ctx, gen, func() {
		s.mu.Lock()
		if s.gen == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}
}

func (s *Search) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// abort picks the error for a query that stopped early.
func (s *Search) abort(ctx context.Context, gen uint64) error {
	if !s.current(gen) {
		s.metrics.SearchRequests.WithLabelValues("superseded").Inc()
		return ErrSuperseded
	}
	return ctx.Err()
}
