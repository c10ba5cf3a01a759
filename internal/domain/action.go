package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActionKind distinguishes field photos from logged remediation actions.
type ActionKind string

const (
	ActionKindPhoto  ActionKind = "photo"
	ActionKindAction ActionKind = "action"
)

// ErrInvalidActionKind is returned for kinds other than photo and action.
var ErrInvalidActionKind = errors.New("invalid action kind")

// ParseActionKind validates an action kind.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ActionKindPhoto, ActionKindAction:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidActionKind, s)
	}
}

// FileMeta describes an attachment. Only metadata is recorded, never content.
type FileMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// ActionRecord is one entry of the append-only field log.
type ActionRecord struct {
	ID          string     `json:"id"`
	Kind        ActionKind `json:"kind"`
	PointID     string     `json:"pointId"`
	Coords      Geo        `json:"coords"`
	Severity    Severity   `json:"severity,omitempty"`
	NDVI        float64    `json:"ndvi"`
	Description string     `json:"description"`
	Files       []FileMeta `json:"files"`
	Timestamp   time.Time  `json:"timestamp"`
}

// NewActionRecord builds a log entry for an observation, stamped with the
// package clock.
func NewActionRecord(kind ActionKind, obs ClassifiedObservation, description string, files []FileMeta) (ActionRecord, error) {
	if _, err := ParseActionKind(string(kind)); err != nil {
		return ActionRecord{}, err
	}
	if files == nil {
		files = []FileMeta{}
	}
	return ActionRecord{
		ID:          uuid.NewString(),
		Kind:        kind,
		PointID:     obs.ID,
		Coords:      obs.Geo,
		Severity:    obs.Severity,
		NDVI:        obs.Classification.NDVI,
		Description: strings.TrimSpace(description),
		Files:       files,
		Timestamp:   clock.Now().UTC(),
	}, nil
}
