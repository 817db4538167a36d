package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/unrest-risk-service/internal/assess"
	"github.com/couchcryptid/unrest-risk-service/internal/config"
	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAssessment() domain.Assessment {
	in := domain.DefaultPresets().Entries()[0].Inputs
	return domain.Assessment{
		ID:         "asmt-1",
		SessionID:  "sess-1",
		Label:      "Los Angeles",
		Inputs:     in,
		Result:     domain.Evaluate(in),
		Model:      domain.DefaultModelName,
		AssessedAt: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	a := testAssessment()

	msg, err := serializeToMessage(a)
	require.NoError(t, err)

	assert.Equal(t, []byte("sess-1"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, HeaderRiskBand, msg.Headers[0].Key)
	assert.Equal(t, []byte("High"), msg.Headers[0].Value)
	assert.Equal(t, HeaderAssessedAt, msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-03-14T15:09:26Z"), msg.Headers[1].Value)

	var decoded domain.Assessment
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, a, decoded)
	assert.Contains(t, string(msg.Value), `"risk_band":"High"`)
	assert.Contains(t, string(msg.Value), `"probability":0.976`)
}

func TestSerializeToMessage_StatelessKeyFallsBackToID(t *testing.T) {
	a := testAssessment()
	a.SessionID = ""

	msg, err := serializeToMessage(a)
	require.NoError(t, err)
	assert.Equal(t, []byte("asmt-1"), msg.Key)
	assert.NotContains(t, string(msg.Value), "session_id")
}

func TestSerializeToMessage_OverflowingZ(t *testing.T) {
	a := testAssessment()
	a.Inputs = domain.Uniform(1e308)
	a.Result = domain.Evaluate(a.Inputs)
	require.True(t, math.IsInf(a.Result.Z, 1))

	msg, err := serializeToMessage(a)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"z":null`)
	assert.Contains(t, string(msg.Value), `"probability":1`)
	assert.Equal(t, []byte("High"), msg.Headers[0].Value)
}

func TestSerializeToMessage_NaNInputFails(t *testing.T) {
	a := testAssessment()
	a.Inputs.JusticeTrigger = math.NaN()

	_, err := serializeToMessage(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize assessment")
}

func TestWriter_LoadBatch_UnserializableIsDropped(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:1"}, KafkaTopic: "t"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	bad := testAssessment()
	bad.Inputs.JusticeTrigger = math.NaN()

	err := w.LoadBatch(context.Background(), []domain.Assessment{bad, bad})
	var dropped *assess.DroppedError
	require.ErrorAs(t, err, &dropped)
	assert.Equal(t, 2, dropped.Dropped)
	assert.Contains(t, err.Error(), "serialize assessment")
}

func TestWriter_LoadBatch_Empty(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:1"}, KafkaTopic: "t"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.LoadBatch(context.Background(), nil))
}
