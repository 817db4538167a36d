package session

import (
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2025, time.June, 1, 15, 4, 5, 0, time.UTC)

func TestLog_AppendThenAll(t *testing.T) {
	log := NewLog()
	assert.Empty(t, log.All())

	result := domain.Evaluate(domain.Uniform(1))
	log.Append("Custom", result, testDate)

	all := log.All()
	require.Len(t, all, 1)
	last := all[len(all)-1]
	assert.Equal(t, "Custom", last.Label)
	assert.Equal(t, 0.998, last.Probability)
	assert.Equal(t, domain.BandHigh, last.Band)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), last.Date)
}

func TestLog_InsertionOrder(t *testing.T) {
	log := NewLog()
	labels := []string{"Boston", "Dallas", "Custom", "Miami", "Boston"}
	for i, l := range labels {
		log.Append(l, domain.ScoreResult{Probability: float64(i) / 10}, testDate.AddDate(0, 0, i))
	}

	all := log.All()
	require.Len(t, all, len(labels))
	assert.Equal(t, len(labels), log.Len())
	for i, e := range all {
		assert.Equal(t, labels[i], e.Label)
		assert.Equal(t, float64(i)/10, e.Probability)
	}
}

func TestLog_AllIsReadOnlyView(t *testing.T) {
	log := NewLog()
	log.Append("Boston", domain.ScoreResult{Probability: 0.827}, testDate)

	view := log.All()
	view[0].Label = "tampered"

	all := log.All()
	require.Len(t, all, 1)
	assert.Equal(t, "Boston", all[0].Label)
}

func TestLog_ConcurrentAppend(t *testing.T) {
	log := NewLog()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append("Custom", domain.ScoreResult{}, testDate)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, log.Len())
}

func TestStore_CreateGetDelete(t *testing.T) {
	s := NewStore(10, time.Hour, clockwork.NewFakeClockAt(testDate))

	id, log := s.Create()
	require.NotEmpty(t, id)
	log.Append("Custom", domain.ScoreResult{Probability: 0.5}, testDate)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Same(t, log, got)
	assert.Equal(t, 1, got.Len())

	assert.True(t, s.Delete(id))
	assert.False(t, s.Delete(id))

	_, err = s.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	s := NewStore(0, 0, nil)
	idA, logA := s.Create()
	idB, logB := s.Create()
	assert.NotEqual(t, idA, idB)

	logA.Append("Boston", domain.ScoreResult{}, testDate)
	assert.Equal(t, 1, logA.Len())
	assert.Equal(t, 0, logB.Len())
}

func TestStore_ExpiresIdleSessions(t *testing.T) {
	clk := clockwork.NewFakeClockAt(testDate)
	s := NewStore(0, 30*time.Minute, clk)

	id, _ := s.Create()
	clk.Advance(20 * time.Minute)
	_, err := s.Get(id)
	require.NoError(t, err, "access refreshes idle timer")

	clk.Advance(20 * time.Minute)
	_, err = s.Get(id)
	require.NoError(t, err)

	clk.Advance(31 * time.Minute)
	_, err = s.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Sweep(t *testing.T) {
	clk := clockwork.NewFakeClockAt(testDate)
	s := NewStore(0, time.Minute, clk)

	s.Create()
	s.Create()
	clk.Advance(2 * time.Minute)
	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, 0, s.Len())

	// Create sweeps lazily as well.
	s.Create()
	clk.Advance(2 * time.Minute)
	keep, _ := s.Create()
	assert.Equal(t, 1, s.Len())
	_, err := s.Get(keep)
	assert.NoError(t, err)
}

func TestStore_EvictsLeastRecentlyUsed(t *testing.T) {
	clk := clockwork.NewFakeClockAt(testDate)
	s := NewStore(2, 0, clk)

	first, _ := s.Create()
	second, _ := s.Create()

	// Touch first so second becomes the eviction candidate.
	_, err := s.Get(first)
	require.NoError(t, err)

	third, _ := s.Create()
	assert.Equal(t, 2, s.Len())

	_, err = s.Get(second)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(first)
	assert.NoError(t, err)
	_, err = s.Get(third)
	assert.NoError(t, err)
}
