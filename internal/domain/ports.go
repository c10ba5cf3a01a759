package domain

import "context"

// Place is a free-text search hit from the geocoding provider.
type Place struct {
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address"`
	Geo              Geo     `json:"geo"`
	Relevance        float64 `json:"relevance"` // 0.0–1.0 provider score
	BBox             *BBox   `json:"bbox,omitempty"`
}

// BBox is a [minLon, minLat, maxLon, maxLat] bounding box.
type BBox [4]float64

// PlaceSearcher resolves free-text place and municipality queries.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, query string) ([]Place, error)
}

// ObservationSource fetches the raw observation collection.
type ObservationSource interface {
	FetchObservations(ctx context.Context) ([]Observation, error)
}

// WatchlistStore persists the watchlist as a whole on every mutation.
type WatchlistStore interface {
	LoadWatchlist(ctx context.Context) ([]string, error)
	SaveWatchlist(ctx context.Context, ids []string) error
}

// ActionLog is the append-only store of field actions and photos.
type ActionLog interface {
	AppendAction(ctx context.Context, rec ActionRecord) error
	ListActions(ctx context.Context) ([]ActionRecord, error)
}

// ActionPublisher forwards logged actions to downstream consumers.
type ActionPublisher interface {
	PublishAction(ctx context.Context, rec ActionRecord) error
}
