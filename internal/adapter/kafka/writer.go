package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/vegwatch-service/internal/config"
	"github.com/couchcryptid/vegwatch-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces field action records to a Kafka topic.
// It implements domain.ActionPublisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured action topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaActionTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishAction serializes an action record and writes it keyed by point id,
// so all records for one observation land on the same partition.
func (w *Writer) PublishAction(ctx context.Context, rec domain.ActionRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish action %s: %w", rec.ID, err)
	}
	w.logger.Debug("action published", "id", rec.ID, "point_id", rec.PointID, "kind", rec.Kind)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an ActionRecord into a Kafka message.
func serializeToMessage(rec domain.ActionRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize action record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.PointID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(rec.Kind)},
			{Key: "recorded_at", Value: []byte(rec.Timestamp.UTC().Format(time.RFC3339))},
		},
	}, nil
}

var _ domain.ActionPublisher = (*Writer)(nil)
