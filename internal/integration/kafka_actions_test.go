//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/vegwatch-service/internal/adapter/kafka"
	"github.com/couchcryptid/vegwatch-service/internal/adapter/sqlite"
	"github.com/couchcryptid/vegwatch-service/internal/config"
	"github.com/couchcryptid/vegwatch-service/internal/dashboard"
	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/couchcryptid/vegwatch-service/internal/observability"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testActionTopic = "test-vegetation-actions"

// publishedAction holds a deserialized message read from the action topic.
type publishedAction struct {
	Record  domain.ActionRecord
	Key     string
	Headers map[string]string
}

func readAction(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedAction {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from action topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.ActionRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal action message")

	return publishedAction{Record: rec, Key: string(msg.Key), Headers: headers}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testActionTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaWriter verifies the adapter layer: kafka.Writer publishes an action
// record keyed by point id with kind and recorded_at headers.
func TestKafkaWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testActionTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaActionTopic: testActionTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	rec := domain.ActionRecord{
		ID:        "rec-1",
		Kind:      domain.ActionKindAction,
		PointID:   "11.6,44.8",
		Coords:    domain.Geo{Lon: 11.6, Lat: 44.8},
		Severity:  domain.SeverityCritical,
		NDVI:      0.05,
		Files:     []domain.FileMeta{},
		Timestamp: time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, writer.PublishAction(ctx, rec))

	got := readAction(ctx, t, newConsumer(t, broker))
	assert.Equal(t, "11.6,44.8", got.Key)
	assert.Equal(t, "action", got.Headers["kind"])
	assert.Equal(t, "2026-05-01T09:30:00Z", got.Headers["recorded_at"])
	assert.Equal(t, rec, got.Record)
}

// TestLogActionPublishes wires the dashboard service to SQLite and Kafka: a
// logged action is persisted locally and published to the action topic.
func TestLogActionPublishes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	fixed := time.Date(2026, 5, 2, 7, 15, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(nil) })

	broker := startKafka(ctx, t)
	createTopic(t, broker, testActionTopic)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaActionTopic: testActionTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	ds := dashboard.NewDataset(nil)
	ds.Publish(ds.NextGeneration(), domain.ClassifyAll([]domain.Observation{
		{Geo: domain.Geo{Lon: 11.95, Lat: 44.85}, NDVI: domain.Float64(0.12), Severity: domain.SeverityCritical},
	}), nil)

	svc := dashboard.NewService(ds, domain.DefaultSelectionConfig(), store, store, writer,
		discardLogger(), observability.NewMetricsForTesting())

	rec, err := svc.LogAction(ctx, domain.ActionKindPhoto, "11.95,44.85", "burnt stubble",
		[]domain.FileMeta{{Name: "field.jpg", Size: 48213, Type: "image/jpeg"}})
	require.NoError(t, err)

	logged, err := store.ListActions(ctx)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, rec, logged[0])

	got := readAction(ctx, t, newConsumer(t, broker))
	assert.Equal(t, "11.95,44.85", got.Key)
	assert.Equal(t, "photo", got.Headers["kind"])
	assert.Equal(t, fixed.Format(time.RFC3339), got.Headers["recorded_at"])
	assert.Equal(t, rec, got.Record)
}
