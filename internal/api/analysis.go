package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/todmy/style-analyzer/internal/auth"
	"github.com/todmy/style-analyzer/internal/feedback"
	"github.com/todmy/style-analyzer/internal/filter"
	"github.com/todmy/style-analyzer/internal/session"
	"github.com/todmy/style-analyzer/pkg/models"
)

// AnalyzeRequest carries the raw detections for one document pass.
type AnalyzeRequest struct {
	Detections []models.RawDetection  `json:"detections"`
	Document   models.DocumentContext `json:"document"`
}

// AnalyzeResponse returns the consolidated errors plus the filter view.
type AnalyzeResponse struct {
	Errors      []models.Error `json:"errors"`
	FilterState filter.State   `json:"filter_state"`
}

// requireSession checks that the token's session matches the URL and
// returns the session handle.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing credentials")
		return nil, false
	}
	if claims.SessionID != sessionID {
		respondError(w, http.StatusForbidden, "session does not belong to this token")
		return nil, false
	}
	return s.sessions.GetOrCreate(sessionID), true
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Document.SessionID = sess.ID

	results := s.pipeline.Process(r.Context(), req.Detections, req.Document)
	errs := s.consolidator.Consolidate(results)
	sess.SetErrors(errs)

	var resp AnalyzeResponse
	sess.With(func(engine *filter.Engine, errors []models.Error) {
		resp.Errors = errors
		resp.FilterState = engine.GetFilterState()
	})

	s.logger.Info("document analyzed",
		"session_id", sess.ID,
		"detections", len(req.Detections),
		"errors", len(resp.Errors),
	)
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetErrors(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var state filter.State
	sess.With(func(engine *filter.Engine, _ []models.Error) {
		state = engine.GetFilterState()
	})
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetFilterState(w http.ResponseWriter, r *http.Request) {
	s.handleGetErrors(w, r)
}

func (s *Server) handleToggleFilter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Severity string `json:"severity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var state filter.State
	sess.With(func(engine *filter.Engine, _ []models.Error) {
		engine.ToggleFilter(filter.Severity(req.Severity))
		state = engine.GetFilterState()
	})
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Preset string `json:"preset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var state filter.State
	sess.With(func(engine *filter.Engine, _ []models.Error) {
		engine.ApplyPreset(req.Preset)
		state = engine.GetFilterState()
	})
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleResetFilters(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var state filter.State
	sess.With(func(engine *filter.Engine, _ []models.Error) {
		engine.ResetFilters()
		state = engine.GetFilterState()
	})
	respondJSON(w, http.StatusOK, state)
}

// FeedbackSummaryEntry is one rule's aggregated reviewer verdicts.
type FeedbackSummaryEntry struct {
	RuleID     string  `json:"rule_id"`
	Helpful    int     `json:"helpful"`
	NotHelpful int     `json:"not_helpful"`
	Precision  float64 `json:"precision"`
}

func (s *Server) handleFeedbackSummary(w http.ResponseWriter, r *http.Request) {
	aggregated, err := s.feedback.Aggregate(r.Context())
	if err != nil {
		s.logger.Error("failed to aggregate feedback", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to aggregate feedback")
		return
	}

	entries := make([]FeedbackSummaryEntry, 0, len(aggregated))
	for _, f := range aggregated {
		entries = append(entries, FeedbackSummaryEntry{
			RuleID:     f.RuleID,
			Helpful:    f.Helpful,
			NotHelpful: f.NotHelpful,
			Precision:  f.Precision(),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"rules": entries})
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	var req struct {
		RuleID  string `json:"rule_id"`
		Helpful bool   `json:"helpful"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RuleID == "" {
		respondError(w, http.StatusBadRequest, "rule_id is required")
		return
	}

	record := &feedback.Record{
		ID:        uuid.New().String(),
		RuleID:    req.RuleID,
		SessionID: claims.SessionID,
		Helpful:   req.Helpful,
		Reason:    req.Reason,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.feedback.Add(r.Context(), record); err != nil {
		s.logger.Error("failed to store feedback", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": record.ID})
}
