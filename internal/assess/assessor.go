// Package assess turns form submissions into scored, logged and published
// assessments.
package assess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/couchcryptid/unrest-risk-service/internal/observability"
	"github.com/couchcryptid/unrest-risk-service/internal/session"
	"github.com/google/uuid"
)

// Enqueuer accepts assessments for asynchronous publishing. Enqueue must not
// block; it reports false when the assessment was dropped.
type Enqueuer interface {
	Enqueue(a domain.Assessment) bool
}

// Request is one form submission. City names a preset; empty or "Custom"
// starts from the custom default. Inputs overrides individual fields of the
// prefilled vector.
type Request struct {
	City   string          `json:"city,omitempty" validate:"max=64"`
	Inputs domain.Override `json:"inputs"`
}

// Assessor scores submissions against the active model and records them in
// the caller's session.
type Assessor struct {
	model     atomic.Pointer[domain.Model]
	sessions  *session.Store
	publisher Enqueuer
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewAssessor creates an Assessor. publisher may be nil when publishing is
// disabled.
func NewAssessor(model *domain.Model, sessions *session.Store, publisher Enqueuer, logger *slog.Logger, metrics *observability.Metrics) *Assessor {
	a := &Assessor{
		sessions:  sessions,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
	a.model.Store(model)
	return a
}

// Model returns the active model.
func (a *Assessor) Model() *domain.Model {
	return a.model.Load()
}

// SetModel atomically replaces the active model. In-flight evaluations finish
// against the model they started with.
func (a *Assessor) SetModel(m *domain.Model) {
	if m == nil {
		return
	}
	prev := a.model.Swap(m)
	prevName := ""
	if prev != nil {
		prevName = prev.Name
	}
	a.logger.Info("model activated", "model", m.Name, "previous", prevName, "presets", m.Presets.Len())
}

// CheckReadiness returns nil once a model is active.
func (a *Assessor) CheckReadiness(_ context.Context) error {
	if a.model.Load() == nil {
		return errors.New("no scoring model loaded")
	}
	return nil
}

// CreateSession starts a new session and returns its ID.
func (a *Assessor) CreateSession() string {
	id, _ := a.sessions.Create()
	a.metrics.SessionsActive.Set(float64(a.sessions.Len()))
	a.logger.Debug("session created", "session_id", id)
	return id
}

// EndSession discards a session and its history.
func (a *Assessor) EndSession(id string) error {
	if !a.sessions.Delete(id) {
		return session.ErrNotFound
	}
	a.metrics.SessionsActive.Set(float64(a.sessions.Len()))
	a.logger.Debug("session ended", "session_id", id)
	return nil
}

// SweepSessions drops expired sessions and returns how many were removed.
func (a *Assessor) SweepSessions() int {
	n := a.sessions.Sweep()
	a.metrics.SessionsActive.Set(float64(a.sessions.Len()))
	if n > 0 {
		a.logger.Debug("expired sessions swept", "removed", n)
	}
	return n
}

// lookupSession fetches a session's log. Get removes a session it finds
// expired, so a miss refreshes the active gauge.
func (a *Assessor) lookupSession(id string) (*session.Log, error) {
	log, err := a.sessions.Get(id)
	if err != nil {
		a.metrics.SessionsActive.Set(float64(a.sessions.Len()))
		return nil, err
	}
	return log, nil
}

// History returns the session's entries oldest first.
func (a *Assessor) History(id string) ([]domain.HistoryEntry, error) {
	log, err := a.lookupSession(id)
	if err != nil {
		return nil, err
	}
	return log.All(), nil
}

// Assess resolves the request's preset, applies overrides, evaluates the
// result, appends it to the session history and queues it for publishing.
func (a *Assessor) Assess(_ context.Context, sessionID string, req Request) (domain.Assessment, error) {
	log, err := a.lookupSession(sessionID)
	if err != nil {
		return domain.Assessment{}, err
	}

	m := a.model.Load()
	base, label, err := m.Presets.Resolve(req.City)
	if err != nil {
		a.metrics.UnknownPresetCalls.Inc()
		return domain.Assessment{}, fmt.Errorf("resolve %q: %w", req.City, err)
	}

	in := req.Inputs.Apply(base)
	result := a.evaluate(m, in)

	now := domain.Now()
	log.Append(label, result, now)
	a.metrics.HistoryAppends.Inc()

	asmt := domain.Assessment{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Label:      label,
		Inputs:     in,
		Result:     result,
		Model:      m.Name,
		AssessedAt: now.UTC(),
	}

	if a.publisher != nil {
		a.publisher.Enqueue(asmt)
	}

	a.logger.Debug("assessment recorded",
		"session_id", sessionID,
		"label", label,
		"probability", result.Probability,
		"band", result.Band,
	)
	return asmt, nil
}

// Score evaluates a complete InputVector without touching any session.
func (a *Assessor) Score(in domain.InputVector) domain.Assessment {
	m := a.model.Load()
	return domain.Assessment{
		Label:      domain.CustomLabel,
		Inputs:     in,
		Result:     a.evaluate(m, in),
		Model:      m.Name,
		AssessedAt: domain.Now().UTC(),
	}
}

func (a *Assessor) evaluate(m *domain.Model, in domain.InputVector) domain.ScoreResult {
	result := m.Evaluate(in)
	a.metrics.Evaluations.WithLabelValues(string(result.Band)).Inc()
	a.metrics.ProbabilityScores.Observe(result.Probability)
	return result
}
