package domain

import (
	"strconv"
	"strings"
)

// Severity is the coarse operational band assigned upstream. It drives
// density-selection priority and view filtering.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityModerate Severity = "moderate"
	SeverityHealthy  Severity = "healthy"
)

// Severities lists the recognized bands in selection priority order.
var Severities = []Severity{SeverityCritical, SeverityModerate, SeverityHealthy}

// ParseSeverity normalizes an upstream severity string. Unrecognized values
// return the zero Severity, which belongs to no band.
func ParseSeverity(s string) Severity {
	switch v := Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case SeverityCritical, SeverityModerate, SeverityHealthy:
		return v
	default:
		return ""
	}
}

// Valid reports whether s is one of the recognized bands.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityModerate, SeverityHealthy:
		return true
	default:
		return false
	}
}

// Level is the display taxonomy produced by the classifier. It is kept
// distinct from Severity: remapped upstream levels can yield "good", which no
// severity band corresponds to.
type Level string

const (
	LevelWater     Level = "water"
	LevelCritical  Level = "critical"
	LevelModerate  Level = "moderate"
	LevelFair      Level = "fair"
	LevelGood      Level = "good"
	LevelExcellent Level = "excellent"
)

// Geo is a WGS-84 coordinate pair. Longitude comes first on the wire.
type Geo struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Observation is one geotagged vegetation-health reading as delivered by the
// data source. Only the coordinates are required.
type Observation struct {
	ID       string   `json:"id"`
	Geo      Geo      `json:"geo"`
	NDVI     *float64 `json:"ndvi,omitempty"`
	Severity Severity `json:"severity,omitempty"`

	// Precomputed upstream classification, optional.
	Level string `json:"level,omitempty"`
	Color string `json:"color,omitempty"`
	Label string `json:"label,omitempty"`

	DistanceToRiverM *float64 `json:"distance_to_river_m,omitempty"`
}

// HasNDVI reports whether the reading carries a measured index. A missing
// reading is classified as 0 but stays distinguishable here.
func (o Observation) HasNDVI() bool {
	return o.NDVI != nil
}

// NDVIOrZero returns the measured index, or 0 when absent.
func (o Observation) NDVIOrZero() float64 {
	if o.NDVI == nil {
		return 0
	}
	return *o.NDVI
}

// ObservationID derives the fallback identity "lon,lat" from a coordinate pair
// using the shortest decimal form that round-trips each float.
func ObservationID(g Geo) string {
	return strconv.FormatFloat(g.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(g.Lat, 'f', -1, 64)
}

// EnsureID fills in the derived identity when the source omitted one.
func EnsureID(o Observation) Observation {
	if strings.TrimSpace(o.ID) == "" {
		o.ID = ObservationID(o.Geo)
	}
	return o
}

// Classification is the canonical display classification of an observation.
// It is derived on every read and never persisted.
type Classification struct {
	Level Level   `json:"level"`
	Color string  `json:"color"`
	Label string  `json:"label"`
	NDVI  float64 `json:"ndvi"`
}

// ClassifiedObservation pairs a source observation with its classification.
type ClassifiedObservation struct {
	Observation
	Classification Classification `json:"classification"`
}

// Float64 returns a pointer to v, for building observations in code.
func Float64(v float64) *float64 {
	return &v
}
