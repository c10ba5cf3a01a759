package pipeline

import (
	"log/slog"

	"github.com/couchcryptid/vegwatch-service/internal/domain"
)

// NDVITransformer implements Transformer with the domain classifier.
type NDVITransformer struct {
	logger *slog.Logger
}

// NewTransformer creates an NDVITransformer.
func NewTransformer(logger *slog.Logger) *NDVITransformer {
	return &NDVITransformer{logger: logger}
}

func (t *NDVITransformer) Transform(raw []domain.Observation) []domain.ClassifiedObservation {
	classified := domain.ClassifyAll(raw)

	missing := 0
	for _, o := range classified {
		if !o.HasNDVI() {
			missing++
		}
	}
	if missing > 0 {
		t.logger.Debug("observations without ndvi classified as 0", "count", missing)
	}
	return classified
}
