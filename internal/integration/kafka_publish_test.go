//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/unrest-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/unrest-risk-service/internal/assess"
	"github.com/couchcryptid/unrest-risk-service/internal/config"
	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/couchcryptid/unrest-risk-service/internal/observability"
	"github.com/couchcryptid/unrest-risk-service/internal/session"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "test-assessments"

// publishedMessage holds a deserialized message read from the assessment topic.
type publishedMessage struct {
	Assessment domain.Assessment
	Key        string
	Headers    map[string]string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.6.1",
		tckafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	ctrl, err := kafkago.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err, "dial controller")
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	}))
}

// readPublished reads a single message from the consumer and deserializes it.
func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from assessment topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var a domain.Assessment
	require.NoError(t, json.Unmarshal(msg.Value, &a), "unmarshal assessment")

	return publishedMessage{Assessment: a, Key: string(msg.Key), Headers: headers}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestWriterRoundTrip verifies kafka.Writer publishes an assessment with the
// expected key, headers and JSON body.
func TestWriterRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	in := domain.NewInputVector(0.5, 0.65, 0.3, 0.4, 0.35, 0.4, 0.3)
	want := domain.Assessment{
		ID:         "asmt-1",
		SessionID:  "sess-1",
		Label:      "Dallas",
		Inputs:     in,
		Result:     domain.Evaluate(in),
		Model:      domain.DefaultModelName,
		AssessedAt: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	}
	require.NoError(t, writer.LoadBatch(ctx, []domain.Assessment{want}))

	got := readPublished(ctx, t, newConsumer(t, broker))
	assert.Equal(t, "sess-1", got.Key)
	assert.Equal(t, "Moderate", got.Headers[kafka.HeaderRiskBand])
	assert.Equal(t, "2026-03-14T15:09:26Z", got.Headers[kafka.HeaderAssessedAt])
	assert.Equal(t, want, got.Assessment)
}

// TestAssessorPublishesEndToEnd wires Assessor -> Publisher -> kafka.Writer
// against a real broker and checks every submission arrives in session order.
func TestAssessorPublishesEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	pub := assess.NewPublisher(writer, discardLogger(), metrics, 5, 100*time.Millisecond, 100)

	pubCtx, pubCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- pub.Run(pubCtx) }()

	a := assess.NewAssessor(domain.DefaultModel(), session.NewStore(10, time.Hour, nil), pub, discardLogger(), metrics)
	id := a.CreateSession()

	cities := domain.DefaultPresets().Names()
	for _, city := range cities {
		_, err := a.Assess(ctx, id, assess.Request{City: city})
		require.NoError(t, err)
	}

	consumer := newConsumer(t, broker)
	received := make([]publishedMessage, 0, len(cities))
	for len(received) < len(cities) {
		received = append(received, readPublished(ctx, t, consumer))
	}

	pubCancel()
	require.NoError(t, <-errCh)

	bands := map[string]int{}
	for i, msg := range received {
		assert.Equal(t, id, msg.Key)
		assert.Equal(t, cities[i], msg.Assessment.Label, "same key keeps submission order")
		assert.Equal(t, string(msg.Assessment.Result.Band), msg.Headers[kafka.HeaderRiskBand])
		bands[msg.Headers[kafka.HeaderRiskBand]]++
	}
	assert.Equal(t, 8, bands["High"])
	assert.Equal(t, 1, bands["Moderate"])
}
