package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActionRecord(t *testing.T) {
	fixedTime := time.Date(2025, 6, 3, 9, 15, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixedTime))
	defer SetClock(nil)

	obs := point("p-7", SeverityCritical, Geo{Lon: 9.19, Lat: 45.46}, 0.12)
	files := []FileMeta{{Name: "canopy.jpg", Size: 20480, Type: "image/jpeg"}}

	rec, err := NewActionRecord(ActionKindPhoto, obs, "  dry canopy along the bank ", files)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(rec.ID)
	require.NoError(t, parseErr)
	assert.Equal(t, ActionKindPhoto, rec.Kind)
	assert.Equal(t, "p-7", rec.PointID)
	assert.Equal(t, Geo{Lon: 9.19, Lat: 45.46}, rec.Coords)
	assert.Equal(t, SeverityCritical, rec.Severity)
	assert.Equal(t, 0.12, rec.NDVI)
	assert.Equal(t, "dry canopy along the bank", rec.Description)
	assert.Equal(t, files, rec.Files)
	assert.Equal(t, fixedTime, rec.Timestamp)
}

func TestNewActionRecord_NilFiles(t *testing.T) {
	rec, err := NewActionRecord(ActionKindAction, point("p", SeverityModerate, origin, 0.3), "irrigate", nil)
	require.NoError(t, err)
	assert.NotNil(t, rec.Files)
	assert.Empty(t, rec.Files)
}

func TestNewActionRecord_InvalidKind(t *testing.T) {
	_, err := NewActionRecord("video", point("p", SeverityModerate, origin, 0.3), "", nil)
	require.ErrorIs(t, err, ErrInvalidActionKind)
}

func TestParseActionKind(t *testing.T) {
	k, err := ParseActionKind(" Photo")
	require.NoError(t, err)
	assert.Equal(t, ActionKindPhoto, k)

	_, err = ParseActionKind("")
	require.ErrorIs(t, err, ErrInvalidActionKind)
}

func TestSetClock(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	SetClock(fake)
	assert.Equal(t, fake.Now(), clock.Now())

	SetClock(nil)
	assert.WithinDuration(t, time.Now(), clock.Now(), time.Second)
}
