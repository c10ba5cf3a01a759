package domain

import (
	"math"
	"sort"
)

// NoCap disables truncation of a band.
const NoCap = math.MaxInt

// BandCaps bounds how many points each severity band may contribute.
type BandCaps struct {
	Critical int
	Moderate int
	Healthy  int
}

// For returns the cap configured for a band. Unrecognized bands get 0.
func (c BandCaps) For(s Severity) int {
	switch s {
	case SeverityCritical:
		return c.Critical
	case SeverityModerate:
		return c.Moderate
	case SeverityHealthy:
		return c.Healthy
	default:
		return 0
	}
}

// SelectionConfig controls density selection for on-map rendering.
type SelectionConfig struct {
	// MinDistanceMeters is the preferred spacing between accepted points of
	// the same band. Points from different bands are never compared. With
	// FillToCap on, spacing is a preference rather than a guarantee: a capped
	// band is topped up with closer points until it reaches its cap.
	MinDistanceMeters float64
	Caps              BandCaps

	// FillToCap tops a capped band up to its cap with the lowest-NDVI
	// candidates the spacing pass rejected.
	FillToCap bool
}

// DefaultSelectionConfig is the operating configuration: the critical band
// is never truncated.
func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{
		MinDistanceMeters: 500,
		Caps: BandCaps{
			Critical: NoCap,
			Moderate: 150,
			Healthy:  100,
		},
		FillToCap: true,
	}
}

// Partition splits observations into severity bands by their Severity field,
// preserving input order. Observations without a recognized severity are
// left out.
func Partition(observations []ClassifiedObservation) map[Severity][]ClassifiedObservation {
	bands := make(map[Severity][]ClassifiedObservation, len(Severities))
	for _, o := range observations {
		if !o.Severity.Valid() {
			continue
		}
		bands[o.Severity] = append(bands[o.Severity], o)
	}
	return bands
}

// Select returns the bounded, decluttered subset of observations to render.
// Bands are processed independently in priority order (critical, moderate,
// healthy) and concatenated in that order.
func Select(observations []ClassifiedObservation, cfg SelectionConfig) []ClassifiedObservation {
	bands := Partition(observations)

	out := make([]ClassifiedObservation, 0, len(observations))
	for _, s := range Severities {
		out = append(out, selectBand(bands[s], cfg.Caps.For(s), cfg)...)
	}
	return out
}

// selectBand thins one band. A band that fits under its cap is returned as is.
func selectBand(band []ClassifiedObservation, limit int, cfg SelectionConfig) []ClassifiedObservation {
	if limit < 0 {
		limit = 0
	}
	if len(band) <= limit {
		return band
	}
	if limit == 0 {
		return nil
	}

	sorted := make([]ClassifiedObservation, len(band))
	copy(sorted, band)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Classification.NDVI < sorted[j].Classification.NDVI
	})

	accepted := make([]bool, len(sorted))
	kept := make([]Geo, 0, limit)
	for i, candidate := range sorted {
		if len(kept) == limit {
			break
		}
		if farFromAll(candidate.Geo, kept, cfg.MinDistanceMeters) {
			accepted[i] = true
			kept = append(kept, candidate.Geo)
		}
	}

	count := len(kept)
	if cfg.FillToCap {
		for i := range sorted {
			if count == limit {
				break
			}
			if !accepted[i] {
				accepted[i] = true
				count++
			}
		}
	}

	out := make([]ClassifiedObservation, 0, count)
	for i, ok := range accepted {
		if ok {
			out = append(out, sorted[i])
		}
	}
	return out
}

func farFromAll(p Geo, kept []Geo, minDistance float64) bool {
	for _, k := range kept {
		if HaversineMeters(p, k) < minDistance {
			return false
		}
	}
	return true
}
