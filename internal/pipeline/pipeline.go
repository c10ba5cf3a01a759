package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/vegwatch-service/internal/backoff"
	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/couchcryptid/vegwatch-service/internal/observability"
)

// Transformer classifies a raw observation collection.
type Transformer interface {
	Transform(raw []domain.Observation) []domain.ClassifiedObservation
}

// Publisher receives each refresh result, tagged with a generation so a
// stale result cannot replace a newer one.
type Publisher interface {
	NextGeneration() uint64
	Publish(gen uint64, observations []domain.ClassifiedObservation, fetchErr error) bool
}

// Pipeline orchestrates the fetch-classify-publish refresh loop.
type Pipeline struct {
	source      domain.ObservationSource
	transformer Transformer
	publisher   Publisher
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	interval    time.Duration
}

// New creates a Pipeline with the given stages and observability.
func New(s domain.ObservationSource, t Transformer, p Publisher, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration) *Pipeline {
	return &Pipeline{
		source:      s,
		transformer: t,
		publisher:   p,
		logger:      logger,
		metrics:     metrics,
		interval:    interval,
	}
}

// CheckReadiness returns nil once a refresh has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no observation refresh has completed yet")
	}
	return nil
}

// Ready reports whether a refresh has completed.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run refreshes immediately and then every interval until the context is
// cancelled. A failed refresh is retried with backoff instead of waiting a
// full interval.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("refresh loop started", "interval", p.interval)
	p.metrics.RefreshLoopRunning.Set(1)
	defer p.metrics.RefreshLoopRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s
	// (or the refresh interval when that is shorter).
	const initialBackoff = 200 * time.Millisecond
	retryWait := initialBackoff
	maxBackoff := min(5*time.Second, p.interval)

	for {
		if ctx.Err() != nil {
			p.logger.Info("refresh loop stopping", "reason", ctx.Err())
			return nil
		}

		wait := p.interval
		if err := p.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			wait = retryWait
			retryWait = backoff.Next(retryWait, maxBackoff)
		} else {
			retryWait = initialBackoff
		}

		if !backoff.Sleep(ctx, wait) {
			p.logger.Info("refresh loop stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// Refresh runs one fetch-classify-publish cycle. A failed fetch publishes an
// empty, unavailable snapshot and returns the error.
func (p *Pipeline) Refresh(ctx context.Context) error {
	start := time.Now()
	gen := p.publisher.NextGeneration()
	p.metrics.RefreshesTotal.Inc()

	raw, err := p.source.FetchObservations(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		p.logger.Error("fetch observations failed", "error", err, "generation", gen)
		p.metrics.RefreshErrors.Inc()
		p.publisher.Publish(gen, nil, err)
		p.setLoaded(nil)
		return err
	}

	classified := p.transformer.Transform(raw)
	if !p.publisher.Publish(gen, classified, nil) {
		p.logger.Warn("stale refresh result dropped", "generation", gen)
		return nil
	}

	p.setLoaded(classified)
	p.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.logger.Info("observations refreshed", "count", len(classified), "generation", gen)
	return nil
}

func (p *Pipeline) setLoaded(observations []domain.ClassifiedObservation) {
	p.metrics.ObservationsLoaded.Set(float64(len(observations)))
	counts := domain.CountBySeverity(observations)
	for _, s := range domain.Severities {
		p.metrics.ObservationsByBand.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}
