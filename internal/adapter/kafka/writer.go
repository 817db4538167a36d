package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/unrest-risk-service/internal/assess"
	"github.com/couchcryptid/unrest-risk-service/internal/config"
	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every published assessment.
const (
	HeaderRiskBand   = "risk_band"
	HeaderAssessedAt = "assessed_at"
)

// Writer produces assessment messages to a Kafka topic.
// It implements assess.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured assessment topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes multiple assessments in a single
// WriteMessages call. Assessments from one session share a key and so land
// on the same partition in submission order.
//
// An assessment that fails to serialize is skipped and the rest are still
// written; the skips are reported as an *assess.DroppedError.
func (w *Writer) LoadBatch(ctx context.Context, assessments []domain.Assessment) error {
	if len(assessments) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(assessments))
	var serializeErrs []error
	for i := range assessments {
		msg, err := serializeToMessage(assessments[i])
		if err != nil {
			w.logger.Error("skipping unserializable assessment", "assessment_id", assessments[i].ID, "error", err)
			serializeErrs = append(serializeErrs, err)
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) > 0 {
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write %d assessments to %s: %w", len(msgs), w.writer.Topic, err)
		}
		w.logger.Debug("assessments published", "count", len(msgs), "topic", w.writer.Topic)
	}
	if len(serializeErrs) > 0 {
		return &assess.DroppedError{Dropped: len(serializeErrs), Err: errors.Join(serializeErrs...)}
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Assessment into a Kafka message keyed by
// session ID. Stateless assessments fall back to their own ID.
func serializeToMessage(a domain.Assessment) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize assessment: %w", err)
	}
	key := a.SessionID
	if key == "" {
		key = a.ID
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderRiskBand, Value: []byte(a.Result.Band)},
			{Key: HeaderAssessedAt, Value: []byte(a.AssessedAt.Format(time.RFC3339))},
		},
	}, nil
}
