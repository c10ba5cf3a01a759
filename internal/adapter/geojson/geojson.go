// Package geojson converts between observation collections and GeoJSON.
package geojson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
)

// ErrUnsupportedPayload is returned when a payload is neither a
// FeatureCollection nor a JSON array of flat records.
var ErrUnsupportedPayload = errors.New("unsupported observation payload")

type rawCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

type rawFeature struct {
	ID         json.RawMessage `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// Decode parses a FeatureCollection of Point features, or a JSON array of
// flat records, into observations. Features without a Point geometry are
// skipped.
func Decode(data []byte) ([]domain.Observation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode observations: %w", ErrUnsupportedPayload)
	}
	if trimmed[0] == '[' {
		return decodeRecords(trimmed)
	}

	var fc rawCollection
	if err := json.Unmarshal(trimmed, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("decode observations: %w: type %q", ErrUnsupportedPayload, fc.Type)
	}

	out := make([]domain.Observation, 0, len(fc.Features))
	for _, f := range fc.Features {
		g, ok := decodePoint(f.Geometry)
		if !ok {
			continue
		}
		props := f.Properties
		if props == nil {
			props = map[string]any{}
		}
		id := stringProp(props, "id")
		if id == "" {
			id = rawID(f.ID)
		}
		out = append(out, observationFromProps(id, g, props))
	}
	return out, nil
}

// decodePoint parses a GeoJSON geometry and accepts only Points.
func decodePoint(raw json.RawMessage) (domain.Geo, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return domain.Geo{}, false
	}
	var g geom.T
	if err := geomjson.Unmarshal(raw, &g); err != nil {
		return domain.Geo{}, false
	}
	p, ok := g.(*geom.Point)
	if !ok || len(p.FlatCoords()) < 2 {
		return domain.Geo{}, false
	}
	return domain.Geo{Lon: p.X(), Lat: p.Y()}, true
}

func decodeRecords(data []byte) ([]domain.Observation, error) {
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode observation records: %w", err)
	}

	out := make([]domain.Observation, 0, len(records))
	for _, r := range records {
		g, ok := recordGeo(r)
		if !ok {
			continue
		}
		out = append(out, observationFromProps(stringProp(r, "id"), g, r))
	}
	return out, nil
}

// recordGeo reads coordinates from "coordinates": [lon, lat] or from
// separate lon/lat (or lng) fields.
func recordGeo(r map[string]any) (domain.Geo, bool) {
	if coords, ok := r["coordinates"].([]any); ok && len(coords) >= 2 {
		lon, okLon := toFloat(coords[0])
		lat, okLat := toFloat(coords[1])
		return domain.Geo{Lon: lon, Lat: lat}, okLon && okLat
	}
	lat, okLat := toFloat(r["lat"])
	lon, okLon := toFloat(r["lon"])
	if !okLon {
		lon, okLon = toFloat(r["lng"])
	}
	return domain.Geo{Lon: lon, Lat: lat}, okLon && okLat
}

func observationFromProps(id string, g domain.Geo, props map[string]any) domain.Observation {
	return domain.Observation{
		ID:               id,
		Geo:              g,
		NDVI:             floatProp(props, "ndvi"),
		Severity:         domain.ParseSeverity(stringProp(props, "severity")),
		Level:            stringProp(props, "level"),
		Color:            stringProp(props, "color"),
		Label:            stringProp(props, "label"),
		DistanceToRiverM: floatProp(props, "distance_to_river_m"),
	}
}

// Encode renders classified observations as a FeatureCollection of Points
// carrying id, severity, and classification properties.
func Encode(observations []domain.ClassifiedObservation) ([]byte, error) {
	fc := geomjson.FeatureCollection{
		Features: make([]*geomjson.Feature, 0, len(observations)),
	}
	for _, o := range observations {
		props := map[string]any{
			"id":           o.ID,
			"level":        string(o.Classification.Level),
			"color":        o.Classification.Color,
			"label":        o.Classification.Label,
			"ndvi":         o.Classification.NDVI,
			"ndvi_missing": !o.HasNDVI(),
		}
		if o.Severity != "" {
			props["severity"] = string(o.Severity)
		}
		if o.DistanceToRiverM != nil {
			props["distance_to_river_m"] = *o.DistanceToRiverM
		}
		fc.Features = append(fc.Features, &geomjson.Feature{
			ID:         o.ID,
			Geometry:   geom.NewPointFlat(geom.XY, []float64{o.Geo.Lon, o.Geo.Lat}),
			Properties: props,
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, fmt.Errorf("encode feature collection: %w", err)
	}
	return data, nil
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return scalarString(v)
}

func stringProp(props map[string]any, key string) string {
	return strings.TrimSpace(scalarString(props[key]))
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// floatProp returns nil when the property is absent, null, or not numeric.
func floatProp(props map[string]any, key string) *float64 {
	v, ok := toFloat(props[key])
	if !ok {
		return nil
	}
	return &v
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
