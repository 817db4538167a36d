package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/couchcryptid/unrest-risk-service/internal/assess"
	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/couchcryptid/unrest-risk-service/internal/session"
	"github.com/go-playground/validator/v10"
)

const (
	maxBodyBytes  = 64 << 10
	maxHeadlines  = 50
	sessionIDPath = "id"
)

type errorResponse struct {
	Error string `json:"error"`
}

type presetsResponse struct {
	Model   string          `json:"model"`
	Custom  domain.Preset   `json:"custom"`
	Presets []domain.Preset `json:"presets"`
}

type sessionResponse struct {
	ID string `json:"id"`
}

type historyResponse struct {
	SessionID string                `json:"session_id"`
	Entries   []domain.HistoryEntry `json:"entries"`
}

// assessmentResponse adds display strings to an assessment.
type assessmentResponse struct {
	domain.Assessment
	Percent  string `json:"percent"`
	Headline string `json:"headline"`
}

type headlinesResponse struct {
	Headlines []domain.Headline `json:"headlines"`
}

// scoreRequest requires every factor; partial vectors belong to sessions,
// where a preset fills the gaps.
type scoreRequest struct {
	EconomicPressure       *float64 `json:"economic_pressure" validate:"required"`
	PoliticalPolarization  *float64 `json:"political_polarization" validate:"required"`
	JusticeTrigger         *float64 `json:"justice_trigger" validate:"required"`
	SocialMediaVirality    *float64 `json:"social_media_virality" validate:"required"`
	SymbolicTiming         *float64 `json:"symbolic_timing" validate:"required"`
	ActivistInfrastructure *float64 `json:"activist_infrastructure" validate:"required"`
	HistoryOfUnrest        *float64 `json:"history_of_unrest" validate:"required"`
}

func (r scoreRequest) vector() domain.InputVector {
	return domain.NewInputVector(
		*r.EconomicPressure,
		*r.PoliticalPolarization,
		*r.JusticeTrigger,
		*r.SocialMediaVirality,
		*r.SymbolicTiming,
		*r.ActivistInfrastructure,
		*r.HistoryOfUnrest,
	)
}

func newAssessmentResponse(a domain.Assessment) assessmentResponse {
	return assessmentResponse{
		Assessment: a,
		Percent:    a.Result.Percent(),
		Headline:   a.Result.Band.Headline(),
	}
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	m := s.assessor.Model()
	writeJSON(w, http.StatusOK, presetsResponse{
		Model:   m.Name,
		Custom:  domain.Preset{Name: domain.CustomLabel, Inputs: domain.Uniform(domain.CustomDefault)},
		Presets: m.Presets.Entries(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, sessionResponse{ID: s.assessor.CreateSession()})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.assessor.EndSession(r.PathValue(sessionIDPath)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req assess.Request
	if err := s.decode(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := s.assessor.Assess(r.Context(), r.PathValue(sessionIDPath), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAssessmentResponse(a))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue(sessionIDPath)
	entries, err := s.assessor.History(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: id, Entries: entries})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := s.decode(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newAssessmentResponse(s.assessor.Score(req.vector())))
}

// handleHeadlines always answers 200; the feed fails soft.
func (s *Server) handleHeadlines(w http.ResponseWriter, r *http.Request) {
	limit := s.headlines.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	limit = min(limit, maxHeadlines)

	headlines := []domain.Headline{}
	if s.headlines.Fetcher != nil && s.headlines.FeedURL != "" {
		headlines = s.headlines.Fetcher.FetchHeadlines(r.Context(), s.headlines.FeedURL, limit)
	}
	writeJSON(w, http.StatusOK, headlinesResponse{Headlines: headlines})
}

// decode reads a JSON body into v and validates it. allowEmpty accepts a
// missing body as the zero value.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return fmt.Errorf("invalid request body: %w", err)
		}
	}
	if err := s.validate.Struct(v); err != nil {
		return describe(err)
	}
	return nil
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, domain.ErrUnknownPreset):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// describe turns validator errors into a message naming the JSON fields.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid request: %s", strings.Join(fields, ", "))
}
