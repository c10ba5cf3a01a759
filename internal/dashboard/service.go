// Package dashboard holds the session state behind the map dashboard: the
// shared observation snapshot, the persisted watchlist, the transient
// multi-select, the action log and place search. Every read recomputes its
// result from the current snapshot with the pure functions in domain.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/couchcryptid/vegwatch-service/internal/observability"
)

var (
	// ErrPersist means a change could not be saved after retrying. The
	// in-memory state is left as it was before the change.
	ErrPersist = errors.New("changes could not be saved")

	// ErrUnknownObservation is returned when an id is not in the current snapshot.
	ErrUnknownObservation = errors.New("unknown observation")
)

// Service is the single logical writer of the watchlist and the selection.
type Service struct {
	dataset   *Dataset
	selection domain.SelectionConfig
	watchlist domain.WatchlistStore
	actions   domain.ActionLog
	publisher domain.ActionPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	retry     retryPolicy

	// writeMu serializes watchlist mutations across their persist round trip.
	writeMu sync.Mutex

	mu       sync.RWMutex
	watched  domain.IDSet
	selected domain.IDSet
	active   domain.ViewName
}

// NewService wires the dashboard state. publisher may be nil when action
// publishing is disabled.
func NewService(
	dataset *Dataset,
	selection domain.SelectionConfig,
	watchlist domain.WatchlistStore,
	actions domain.ActionLog,
	publisher domain.ActionPublisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		dataset:   dataset,
		selection: selection,
		watchlist: watchlist,
		actions:   actions,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		retry:     defaultRetry,
		watched:   domain.NewIDSet(),
		selected:  domain.NewIDSet(),
		active:    domain.ViewAll,
	}
}

// Snapshot returns the current observation snapshot.
func (s *Service) Snapshot() Snapshot {
	return s.dataset.Snapshot()
}

// View derives the named view from the current snapshot and watchlist.
func (s *Service) View(name domain.ViewName) ([]domain.ClassifiedObservation, error) {
	snap := s.dataset.Snapshot()
	s.mu.RLock()
	watched := s.watched.Clone()
	s.mu.RUnlock()
	return domain.View(name, snap.Observations, watched)
}

// resolve returns the full snapshot for an empty name, otherwise the view.
func (s *Service) resolve(name string) ([]domain.ClassifiedObservation, error) {
	if name == "" {
		return s.dataset.Snapshot().Observations, nil
	}
	v, err := domain.ParseViewName(name)
	if err != nil {
		return nil, err
	}
	return s.View(v)
}

func (s *Service) ActiveView() domain.ViewName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActiveView switches the view that SelectAllInView operates on. The
// selection itself is kept.
func (s *Service) SetActiveView(name string) (domain.ViewName, error) {
	v, err := domain.ParseViewName(name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.active = v
	s.mu.Unlock()
	return v, nil
}

// MapLayer returns the decluttered points to render. An empty name renders
// from the whole snapshot.
func (s *Service) MapLayer(name string) ([]domain.ClassifiedObservation, error) {
	obs, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	layer := domain.Select(obs, s.selection)
	s.metrics.MapFeaturesRendered.Observe(float64(len(layer)))
	return layer, nil
}

// Stats summarizes a view, or the whole snapshot for an empty name.
func (s *Service) Stats(name string) (domain.Summary, error) {
	obs, err := s.resolve(name)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(obs), nil
}

// --- Watchlist ---

// LoadWatchlist reads the persisted watchlist once at session start. On
// failure the session starts with an empty watchlist and the error is
// returned for logging.
func (s *Service) LoadWatchlist(ctx context.Context) error {
	ids, err := s.watchlist.LoadWatchlist(ctx)
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}
	s.mu.Lock()
	s.watched = domain.NewIDSet(ids...)
	s.mu.Unlock()
	s.logger.Info("watchlist loaded", "count", len(ids))
	return nil
}

// Watchlist returns the watched ids in lexical order.
func (s *Service) Watchlist() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watched.Sorted()
}

// AddToWatchlist watches id. The change is committed in memory only after
// the whole list has been persisted.
func (s *Service) AddToWatchlist(ctx context.Context, id string) ([]string, error) {
	return s.mutateWatchlist(ctx, id, true)
}

// RemoveFromWatchlist unwatches id. Removing an unwatched id is a no-op.
func (s *Service) RemoveFromWatchlist(ctx context.Context, id string) ([]string, error) {
	return s.mutateWatchlist(ctx, id, false)
}

func (s *Service) mutateWatchlist(ctx context.Context, id string, add bool) ([]string, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrUnknownObservation)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	next := s.watched.Clone()
	s.mu.RUnlock()

	if next.Has(id) == add {
		return next.Sorted(), nil
	}
	if add {
		next.Add(id)
	} else {
		next.Remove(id)
	}

	ids := next.Sorted()
	if err := s.persist(ctx, "watchlist", func(ctx context.Context) error {
		return s.watchlist.SaveWatchlist(ctx, ids)
	}); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.watched = next
	s.mu.Unlock()
	return ids, nil
}

// --- Selection ---

// Selection returns the selected ids in lexical order.
func (s *Service) Selection() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected.Sorted()
}

func (s *Service) ToggleSelection(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = domain.Toggle(id, s.selected)
	return s.selected.Sorted()
}

// SelectAllInView replaces the selection with the members of the named view,
// or of the active view when name is empty.
func (s *Service) SelectAllInView(name string) ([]string, error) {
	v := s.ActiveView()
	if name != "" {
		parsed, err := domain.ParseViewName(name)
		if err != nil {
			return nil, err
		}
		v = parsed
	}
	members, err := s.View(v)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = domain.SelectAll(members)
	return s.selected.Sorted(), nil
}

func (s *Service) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = domain.ClearSelection()
}

// --- Action log ---

// LogAction records a photo or action against an observation in the current
// snapshot. The record is persisted first; publishing is best effort.
func (s *Service) LogAction(ctx context.Context, kind domain.ActionKind, pointID, description string, files []domain.FileMeta) (domain.ActionRecord, error) {
	obs, ok := s.dataset.Lookup(pointID)
	if !ok {
		return domain.ActionRecord{}, fmt.Errorf("%w: %q", ErrUnknownObservation, pointID)
	}

	rec, err := domain.NewActionRecord(kind, obs, description, files)
	if err != nil {
		return domain.ActionRecord{}, err
	}

	if err := s.persist(ctx, "actions", func(ctx context.Context) error {
		return s.actions.AppendAction(ctx, rec)
	}); err != nil {
		return domain.ActionRecord{}, err
	}

	s.publish(ctx, rec)
	return rec, nil
}

// ListActions returns the action log in append order.
func (s *Service) ListActions(ctx context.Context) ([]domain.ActionRecord, error) {
	return s.actions.ListActions(ctx)
}

func (s *Service) publish(ctx context.Context, rec domain.ActionRecord) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAction(ctx, rec); err != nil {
		s.logger.Warn("publish action failed", "error", err, "id", rec.ID, "point_id", rec.PointID)
		s.metrics.ActionsPublished.WithLabelValues("error").Inc()
		return
	}
	s.metrics.ActionsPublished.WithLabelValues("success").Inc()
}

// persist runs a write with retry and maps a final failure to ErrPersist.
func (s *Service) persist(ctx context.Context, store string, write func(context.Context) error) error {
	err := s.retry.do(ctx, write, func(err error) {
		s.logger.Warn("persist failed, retrying", "store", store, "error", err)
		s.metrics.PersistRetries.WithLabelValues(store).Inc()
	})
	if err != nil {
		s.logger.Error("persist failed", "store", store, "error", err)
		s.metrics.PersistFailures.WithLabelValues(store).Inc()
		return fmt.Errorf("%w: %s: %w", ErrPersist, store, err)
	}
	return nil
}
