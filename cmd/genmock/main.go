// Command genmock generates a synthetic NDVI observation fixture for the
// pipeline tests. Point positions and NDVI values are random (seeded), but
// the per-band structure is fixed so test assertions only depend on the
// structure. It runs the actual domain classifier and selector on the result
// and prints the numbers the tests assert on.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/ndvi_points.geojson
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/couchcryptid/vegwatch-service/internal/adapter/geojson"
	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
)

// Fixture centre, the Po delta east of Ferrara.
var center = domain.Geo{Lon: 11.95, Lat: 44.85}

const spread = 0.15 // degrees

// band describes one block of generated points.
type band struct {
	prefix   string
	severity string
	count    int
	ndviLo   float64
	ndviHi   float64
}

var bands = []band{
	{prefix: "crit", severity: "critical", count: 60, ndviLo: 0.0, ndviHi: 0.2},
	{prefix: "mod", severity: "moderate", count: 180, ndviLo: 0.2, ndviHi: 0.4},
	{prefix: "hlth", severity: "healthy", count: 130, ndviLo: 0.6, ndviHi: 0.9},
	{prefix: "nosev", severity: "", count: 2, ndviLo: 0.4, ndviHi: 0.6},
}

const (
	missingNDVICritical = 5  // crit-001..crit-005 carry a null ndvi
	waterCritical       = 6  // crit-006 sits on open water
	upstreamEvery       = 10 // every 10th healthy point carries an upstream density level
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the GeoJSON fixture")
	seed := flag.Uint64("seed", 20260501, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed>>1)) //nolint:gosec // fixture data, not security sensitive

	fc := geomjson.FeatureCollection{}
	for _, b := range bands {
		for i := 1; i <= b.count; i++ {
			fc.Features = append(fc.Features, pointFeature(rng, b, i))
		}
	}
	// A non-point feature the decoder must skip.
	fc.Features = append(fc.Features, &geomjson.Feature{
		ID: "river-axis",
		Geometry: geom.NewLineStringFlat(geom.XY, []float64{
			center.Lon - spread, center.Lat, center.Lon + spread, center.Lat,
		}),
		Properties: map[string]any{"id": "river-axis"},
	})

	data, err := json.MarshalIndent(&fc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := writeFile(*out, append(data, '\n')); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s (%d features)", *out, len(fc.Features))

	return printStats(data)
}

func pointFeature(rng *rand.Rand, b band, i int) *geomjson.Feature {
	id := fmt.Sprintf("%s-%03d", b.prefix, i)
	lon := center.Lon + (rng.Float64()*2-1)*spread
	lat := center.Lat + (rng.Float64()*2-1)*spread

	props := map[string]any{
		"id":                  id,
		"ndvi":                round(b.ndviLo+rng.Float64()*(b.ndviHi-b.ndviLo), 4),
		"distance_to_river_m": round(rng.Float64()*5000, 1),
	}
	if b.severity != "" {
		props["severity"] = b.severity
	}

	switch {
	case b.prefix == "crit" && i <= missingNDVICritical:
		props["ndvi"] = nil
	case b.prefix == "crit" && i == waterCritical:
		props["ndvi"] = -0.35
	case b.prefix == "hlth" && i%upstreamEvery == 0:
		props["level"] = "dense"
		props["color"] = "#32CD32"
		props["label"] = "Dense vegetation"
	}

	return &geomjson.Feature{
		ID:         id,
		Geometry:   geom.NewPointFlat(geom.XY, []float64{round(lon, 6), round(lat, 6)}),
		Properties: props,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// printStats decodes the written fixture the way the service does and
// reports what the tests assert on.
func printStats(data []byte) error {
	raw, err := geojson.Decode(data)
	if err != nil {
		return fmt.Errorf("decode fixture: %w", err)
	}
	classified := domain.ClassifyAll(raw)
	summary := domain.Summarize(classified)
	selected := domain.CountBySeverity(domain.Select(classified, domain.DefaultSelectionConfig()))

	levels := map[domain.Level]int{}
	missing := 0
	for _, o := range classified {
		levels[o.Classification.Level]++
		if !o.HasNDVI() {
			missing++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Decoded: %d (unbanded %d, missing ndvi %d)\n", summary.Total, summary.Unbanded, missing)
	for _, s := range domain.Severities {
		b := summary.Bands[s]
		fmt.Printf("%-8s count=%d selected=%d min=%.4f max=%.4f mean=%.4f\n",
			s, b.Count, selected[s], b.MinNDVI, b.MaxNDVI, b.MeanNDVI)
	}
	fmt.Printf("Levels: water=%d critical=%d moderate=%d fair=%d good=%d excellent=%d\n",
		levels[domain.LevelWater], levels[domain.LevelCritical], levels[domain.LevelModerate],
		levels[domain.LevelFair], levels[domain.LevelGood], levels[domain.LevelExcellent])
	return nil
}
