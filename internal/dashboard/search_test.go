package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/vegwatch-service/internal/adapter/mapbox"
	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/couchcryptid/vegwatch-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSearcher answers every query with one place named after the query.
// When gate is set, each call waits for a value on gate (or cancellation
// when honorCancel is set) before answering.
type stubSearcher struct {
	calls       atomic.Int32
	started     chan string
	gate        chan struct{}
	honorCancel bool
	err         error
}

func (s *stubSearcher) SearchPlaces(ctx context.Context, q string) ([]domain.Place, error) {
	s.calls.Add(1)
	if s.started != nil {
		s.started <- q
	}
	if s.gate != nil {
		if s.honorCancel {
			select {
			case <-s.gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		} else {
			<-s.gate
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Place{{Name: q}}, nil
}

type queryResult struct {
	places []domain.Place
	err    error
}

func newTestSearch(searcher domain.PlaceSearcher, debounce time.Duration, clock clockwork.Clock) *Search {
	return NewSearch(searcher, debounce, clock, testLogger(), observability.NewMetricsForTesting())
}

func TestSearch_EmptyQuery(t *testing.T) {
	stub := &stubSearcher{}
	s := newTestSearch(stub, 0, nil)

	places, err := s.Query(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, places)
	assert.NotNil(t, places)
	assert.Zero(t, stub.calls.Load())
}

func TestSearch_Disabled(t *testing.T) {
	s := newTestSearch(nil, 0, nil)
	assert.False(t, s.Enabled())

	places, err := s.Query(context.Background(), "Ferrara")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestSearch_Success(t *testing.T) {
	s := newTestSearch(&stubSearcher{}, 0, nil)
	assert.True(t, s.Enabled())

	places, err := s.Query(context.Background(), " Ferrara ")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Ferrara", places[0].Name)
}

func TestSearch_FailureDegradesToEmpty(t *testing.T) {
	s := newTestSearch(&stubSearcher{err: errors.New("upstream 500")}, 0, nil)

	places, err := s.Query(context.Background(), "Ferrara")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestSearch_Debounce(t *testing.T) {
	fc := clockwork.NewFakeClock()
	stub := &stubSearcher{}
	s := newTestSearch(stub, 300*time.Millisecond, fc)

	done := make(chan queryResult, 1)
	go func() {
		p, err := s.Query(context.Background(), "Ferrara")
		done <- queryResult{p, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	assert.Zero(t, stub.calls.Load(), "searcher must not run before the debounce delay")

	fc.Advance(300 * time.Millisecond)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "Ferrara", r.places[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("query did not complete after debounce")
	}
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestSearch_SupersededWhileInFlight(t *testing.T) {
	stub := &stubSearcher{
		started:     make(chan string, 2),
		gate:        make(chan struct{}),
		honorCancel: true,
	}
	s := newTestSearch(stub, 0, nil)

	first := make(chan queryResult, 1)
	go func() {
		p, err := s.Query(context.Background(), "Fer")
		first <- queryResult{p, err}
	}()
	require.Equal(t, "Fer", <-stub.started)

	second := make(chan queryResult, 1)
	go func() {
		p, err := s.Query(context.Background(), "Ferrara")
		second <- queryResult{p, err}
	}()

	// The first request is aborted as soon as the second one starts.
	r := <-first
	require.ErrorIs(t, r.err, ErrSuperseded)
	assert.Nil(t, r.places)

	require.Equal(t, "Ferrara", <-stub.started)
	close(stub.gate)
	r = <-second
	require.NoError(t, r.err)
	assert.Equal(t, "Ferrara", r.places[0].Name)
}

func TestSearch_LateResponseNeverWins(t *testing.T) {
	// This searcher ignores cancellation, so the stale answer does arrive.
	stub := &stubSearcher{
		started: make(chan string, 2),
		gate:    make(chan struct{}),
	}
	s := newTestSearch(stub, 0, nil)

	first := make(chan queryResult, 1)
	go func() {
		p, err := s.Query(context.Background(), "Fer")
		first <- queryResult{p, err}
	}()
	require.Equal(t, "Fer", <-stub.started)

	second := make(chan queryResult, 1)
	go func() {
		p, err := s.Query(context.Background(), "Ferrara")
		second <- queryResult{p, err}
	}()
	require.Equal(t, "Ferrara", <-stub.started)

	close(stub.gate)

	r := <-first
	require.ErrorIs(t, r.err, ErrSuperseded)
	r = <-second
	require.NoError(t, r.err)
	assert.Equal(t, "Ferrara", r.places[0].Name)
}

func TestSearch_CallerCancel(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := newTestSearch(&stubSearcher{}, 300*time.Millisecond, fc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan queryResult, 1)
	go func() {
		p, err := s.Query(ctx, "Ferrara")
		done <- queryResult{p, err}
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, fc.BlockUntilContext(waitCtx, 1))
	cancel()

	r := <-done
	require.ErrorIs(t, r.err, context.Canceled)
}

func TestSearch_LatestQueryJoiningCachedLookupWins(t *testing.T) {
	stub := &stubSearcher{started: make(chan string, 2), gate: make(chan struct{}), honorCancel: true}
	cached := mapbox.NewCachedSearcher(stub, 10, observability.NewMetricsForTesting())
	s := newTestSearch(cached, 0, nil)

	first := make(chan queryResult, 1)
	go func() {
		places, err := s.Query(context.Background(), "Ferrara")
		first <- queryResult{places, err}
	}()
	<-stub.started

	latest := make(chan queryResult, 1)
	go func() {
		places, err := s.Query(context.Background(), "ferrara ")
		latest <- queryResult{places, err}
	}()

	require.ErrorIs(t, (<-first).err, ErrSuperseded)
	// Let the newer query join the in-flight lookup for the same key.
	time.Sleep(20 * time.Millisecond)
	close(stub.gate)

	got := <-latest
	require.NoError(t, got.err)
	require.NotEmpty(t, got.places)
	assert.Equal(t, "Ferrara", got.places[0].Name)
	assert.Equal(t, int32(1), stub.calls.Load())
}
