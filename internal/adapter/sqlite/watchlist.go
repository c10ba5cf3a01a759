package sqlite

import (
	"context"
	"encoding/json"

	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/rotisserie/eris"
)

// LoadWatchlist returns the persisted watchlist ids. An unset key yields an
// empty list.
func (s *Store) LoadWatchlist(ctx context.Context) ([]string, error) {
	raw, ok, err := s.Get(ctx, KeyWatchlist)
	if err != nil || !ok {
		return []string{}, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return []string{}, eris.Wrap(err, "sqlite: decode watchlist")
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// SaveWatchlist rewrites the whole watchlist.
func (s *Store) SaveWatchlist(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode watchlist")
	}
	return s.Set(ctx, KeyWatchlist, raw)
}

func (s *Store) AppendAction(ctx context.Context, rec domain.ActionRecord) error {
	return s.Append(ctx, KeyActions, rec)
}

// ListActions returns the action log in append order.
func (s *Store) ListActions(ctx context.Context) ([]domain.ActionRecord, error) {
	raw, ok, err := s.Get(ctx, KeyActions)
	if err != nil || !ok {
		return []domain.ActionRecord{}, err
	}
	var recs []domain.ActionRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return []domain.ActionRecord{}, eris.Wrap(err, "sqlite: decode actions")
	}
	if recs == nil {
		recs = []domain.ActionRecord{}
	}
	return recs, nil
}

var (
	_ domain.WatchlistStore = (*Store)(nil)
	_ domain.ActionLog      = (*Store)(nil)
)
