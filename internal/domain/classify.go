package domain

// Display colors for NDVI-derived levels.
const (
	ColorWater     = "#8B0000"
	ColorCritical  = "#DC143C"
	ColorModerate  = "#FF8C00"
	ColorFair      = "#FFD700"
	ColorExcellent = "#228B22"
)

const labelUnclassified = "Unclassified"

// upstreamLevels remaps the upstream vegetation-density taxonomy onto display
// levels. "dense" maps to LevelGood, which has no severity counterpart.
var upstreamLevels = map[string]Level{
	"very_sparse": LevelCritical,
	"sparse":      LevelModerate,
	"dense":       LevelGood,
	"very_dense":  LevelExcellent,
}

// levelRanks orders the NDVI-derived levels from worst to best.
var levelRanks = map[Level]int{
	LevelWater:     0,
	LevelCritical:  1,
	LevelModerate:  2,
	LevelFair:      3,
	LevelExcellent: 4,
}

// Classify maps an observation to its display classification. It is total:
// every observation yields exactly one classification.
//
// An upstream level and color, when both present, take precedence. Otherwise
// the NDVI value (0 when missing) is bucketed with half-open thresholds:
//
//	ndvi < -0.2          water      Water/Soil
//	-0.2 <= ndvi < 0.2   critical   Critical
//	 0.2 <= ndvi < 0.4   moderate   Moderate
//	 0.4 <= ndvi < 0.6   fair       Fair
//	 ndvi >= 0.6         excellent  Healthy
func Classify(o Observation) Classification {
	ndvi := o.NDVIOrZero()

	if o.Level != "" && o.Color != "" {
		label := o.Label
		if label == "" {
			label = string(o.Severity)
		}
		if label == "" {
			label = labelUnclassified
		}
		return Classification{
			Level: remapLevel(o.Level),
			Color: o.Color,
			Label: label,
			NDVI:  ndvi,
		}
	}

	return classifyNDVI(ndvi)
}

func classifyNDVI(ndvi float64) Classification {
	c := Classification{NDVI: ndvi}
	switch {
	case ndvi < -0.2:
		c.Level, c.Color, c.Label = LevelWater, ColorWater, "Water/Soil"
	case ndvi < 0.2:
		c.Level, c.Color, c.Label = LevelCritical, ColorCritical, "Critical"
	case ndvi < 0.4:
		c.Level, c.Color, c.Label = LevelModerate, ColorModerate, "Moderate"
	case ndvi < 0.6:
		c.Level, c.Color, c.Label = LevelFair, ColorFair, "Fair"
	default:
		c.Level, c.Color, c.Label = LevelExcellent, ColorExcellent, "Healthy"
	}
	return c
}

// remapLevel translates an upstream level. Unknown levels pass through.
func remapLevel(level string) Level {
	if l, ok := upstreamLevels[level]; ok {
		return l
	}
	return Level(level)
}

// LevelRank returns the position of an NDVI-derived level on the
// water→excellent scale, or -1 for levels outside it.
func LevelRank(l Level) int {
	if r, ok := levelRanks[l]; ok {
		return r
	}
	return -1
}

// ClassifyAll assigns identities where missing and classifies every
// observation. The input slice is not modified.
func ClassifyAll(observations []Observation) []ClassifiedObservation {
	out := make([]ClassifiedObservation, len(observations))
	for i, o := range observations {
		o = EnsureID(o)
		out[i] = ClassifiedObservation{Observation: o, Classification: Classify(o)}
	}
	return out
}
