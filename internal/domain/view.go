package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ViewName identifies a derived subset of observations.
type ViewName string

const (
	// ViewAll is the union of the critical and watchlist views, not the full
	// observation collection.
	ViewAll       ViewName = "all"
	ViewCritical  ViewName = "critical"
	ViewWatchlist ViewName = "watchlist"
)

// ErrUnknownView is returned for view names outside all/critical/watchlist.
var ErrUnknownView = errors.New("unknown view")

// ParseViewName validates a view name. The empty string selects ViewAll.
func ParseViewName(s string) (ViewName, error) {
	switch v := ViewName(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewAll, nil
	case ViewAll, ViewCritical, ViewWatchlist:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
	}
}

// View derives the named subset from the observations and the current
// watchlist. It holds no state; calling it twice with equal inputs yields
// equal results. Input order is preserved.
func View(name ViewName, observations []ClassifiedObservation, watchlist IDSet) ([]ClassifiedObservation, error) {
	switch name {
	case ViewCritical:
		return filter(observations, isCritical), nil
	case ViewWatchlist:
		return filter(observations, func(o ClassifiedObservation) bool {
			return watchlist.Has(o.ID)
		}), nil
	case ViewAll:
		seen := NewIDSet()
		out := make([]ClassifiedObservation, 0)
		for _, o := range observations {
			if !isCritical(o) && !watchlist.Has(o.ID) {
				continue
			}
			if seen.Has(o.ID) {
				continue
			}
			seen.Add(o.ID)
			out = append(out, o)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
}

func isCritical(o ClassifiedObservation) bool {
	return o.Severity == SeverityCritical
}

func filter(observations []ClassifiedObservation, keep func(ClassifiedObservation) bool) []ClassifiedObservation {
	out := make([]ClassifiedObservation, 0)
	for _, o := range observations {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

// IDSet is an unordered set of observation ids. The zero value is an empty,
// read-only set; use NewIDSet for one that accepts Add.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids. Duplicates collapse.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership. Safe on a nil set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id. Adding an existing id is a no-op.
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// Remove deletes id if present.
func (s IDSet) Remove(id string) {
	delete(s, id)
}

// Len returns the number of ids.
func (s IDSet) Len() int {
	return len(s)
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Toggle returns a copy of selected with id's membership flipped.
func Toggle(id string, selected IDSet) IDSet {
	next := selected.Clone()
	if next.Has(id) {
		next.Remove(id)
	} else {
		next.Add(id)
	}
	return next
}

// SelectAll returns a selection holding exactly the members of the given
// view, never the whole universe of observations.
func SelectAll(view []ClassifiedObservation) IDSet {
	return NewIDSet(IDs(view)...)
}

// ClearSelection returns an empty selection.
func ClearSelection() IDSet {
	return NewIDSet()
}

// IDs extracts observation ids in order.
func IDs(observations []ClassifiedObservation) []string {
	ids := make([]string, len(observations))
	for i, o := range observations {
		ids[i] = o.ID
	}
	return ids
}
