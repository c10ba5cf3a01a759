package dashboard

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Status describes the state of the observation snapshot.
type Status string

const (
	StatusLoading     Status = "loading"
	StatusReady       Status = "ready"
	StatusEmpty       Status = "empty"
	StatusUnavailable Status = "unavailable"
)

// Snapshot is an immutable view of the classified observations. Callers must
// not modify Observations.
type Snapshot struct {
	Observations []domain.ClassifiedObservation
	Status       Status
	Err          string
	Generation   uint64
	UpdatedAt    time.Time
}

// Dataset holds the current observation snapshot. It is shared by reference
// between the refresh pipeline (the only publisher) and the readers.
type Dataset struct {
	mu    sync.RWMutex
	snap  Snapshot
	gen   atomic.Uint64
	clock clockwork.Clock
}

// NewDataset returns a Dataset in the loading state.
func NewDataset(clock clockwork.Clock) *Dataset {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dataset{
		snap:  Snapshot{Observations: []domain.ClassifiedObservation{}, Status: StatusLoading},
		clock: clock,
	}
}

// NextGeneration issues a generation number for a new fetch. Numbers are
// strictly increasing.
func (d *Dataset) NextGeneration() uint64 {
	return d.gen.Add(1)
}

// Publish installs the result of the fetch tagged gen. A result older than
// the current snapshot is dropped, so a slow response can never overwrite a
// newer one. A non-nil fetchErr publishes an empty, unavailable snapshot.
// Publish reports whether the result was applied.
func (d *Dataset) Publish(gen uint64, observations []domain.ClassifiedObservation, fetchErr error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen <= d.snap.Generation {
		return false
	}

	next := Snapshot{
		Observations: observations,
		Status:       StatusReady,
		Generation:   gen,
		UpdatedAt:    d.clock.Now().UTC(),
	}
	switch {
	case fetchErr != nil:
		next.Observations = []domain.ClassifiedObservation{}
		next.Status = StatusUnavailable
		next.Err = fetchErr.Error()
	case len(observations) == 0:
		next.Observations = []domain.ClassifiedObservation{}
		next.Status = StatusEmpty
	}
	d.snap = next
	return true
}

// Snapshot returns the current snapshot.
func (d *Dataset) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap
}

// Lookup finds an observation by id in the current snapshot.
func (d *Dataset) Lookup(id string) (domain.ClassifiedObservation, bool) {
	snap := d.Snapshot()
	for _, o := range snap.Observations {
		if o.ID == id {
			return o, true
		}
	}
	return domain.ClassifiedObservation{}, false
}
