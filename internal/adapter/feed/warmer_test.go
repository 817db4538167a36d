package feed

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls   atomic.Int32
	lastURL atomic.Value
}

func (r *countingRefresher) Refresh(_ context.Context, feedURL string, limit int) int {
	r.lastURL.Store(feedURL)
	r.calls.Add(1)
	return limit
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWarmer_RefreshesOnStartAndSchedule(t *testing.T) {
	r := &countingRefresher{}
	w, err := NewWarmer("@every 1s", r, "https://feed", 5, time.Second, discardLogger())
	require.NoError(t, err)

	w.Start()
	t.Cleanup(func() { _ = w.Stop(context.Background()) })

	require.Eventually(t, func() bool { return r.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "https://feed", r.lastURL.Load())

	require.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)
}

func TestWarmer_InvalidSchedule(t *testing.T) {
	_, err := NewWarmer("every ten minutes", &countingRefresher{}, "https://feed", 5, time.Second, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add refresh schedule")
}

func TestWarmer_StopRespectsContext(t *testing.T) {
	w, err := NewWarmer("@hourly", &countingRefresher{}, "https://feed", 5, time.Second, discardLogger())
	require.NoError(t, err)

	w.Start()
	assert.NoError(t, w.Stop(context.Background()))
}
