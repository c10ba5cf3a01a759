package domain

// BandStats summarizes the NDVI distribution of one severity band.
type BandStats struct {
	Count    int     `json:"count"`
	MeanNDVI float64 `json:"mean_ndvi"`
	MinNDVI  float64 `json:"min_ndvi"`
	MaxNDVI  float64 `json:"max_ndvi"`
}

// Summary aggregates a classified collection for dashboard panels.
type Summary struct {
	Total int                    `json:"total"`
	Bands map[Severity]BandStats `json:"bands"`

	// Unbanded counts observations without a recognized severity.
	Unbanded int `json:"unbanded"`
}

// Summarize reduces observations to per-band counts and NDVI statistics.
// Every recognized band is present in the result, with zero stats when empty.
func Summarize(observations []ClassifiedObservation) Summary {
	sum := Summary{
		Total: len(observations),
		Bands: make(map[Severity]BandStats, len(Severities)),
	}
	for _, s := range Severities {
		sum.Bands[s] = BandStats{}
	}

	totals := make(map[Severity]float64, len(Severities))
	for _, o := range observations {
		if !o.Severity.Valid() {
			sum.Unbanded++
			continue
		}
		ndvi := o.Classification.NDVI
		b := sum.Bands[o.Severity]
		if b.Count == 0 || ndvi < b.MinNDVI {
			b.MinNDVI = ndvi
		}
		if b.Count == 0 || ndvi > b.MaxNDVI {
			b.MaxNDVI = ndvi
		}
		b.Count++
		totals[o.Severity] += ndvi
		sum.Bands[o.Severity] = b
	}

	for s, b := range sum.Bands {
		if b.Count > 0 {
			b.MeanNDVI = totals[s] / float64(b.Count)
			sum.Bands[s] = b
		}
	}
	return sum
}

// CountBySeverity counts observations per recognized band.
func CountBySeverity(observations []ClassifiedObservation) map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	for _, s := range Severities {
		counts[s] = 0
	}
	for _, o := range observations {
		if o.Severity.Valid() {
			counts[o.Severity]++
		}
	}
	return counts
}
