// Package session keeps per-session evaluation history in memory. Nothing
// here survives a process restart.
package session

import (
	"sync"
	"time"

	"github.com/couchcryptid/unrest-risk-service/internal/domain"
)

// Log is an append-only, insertion-ordered history of evaluations for one
// session.
type Log struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds an entry for result to the end of the log. date is reduced to
// its UTC calendar day.
func (l *Log) Append(label string, result domain.ScoreResult, date time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, domain.HistoryEntry{
		Date:        domain.CalendarDate(date),
		Label:       label,
		Probability: result.Probability,
		Band:        result.Band,
	})
}

// All returns the entries oldest first. The slice is a copy; callers cannot
// modify the log through it.
func (l *Log) All() []domain.HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
