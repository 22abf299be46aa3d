package http

import (
	"errors"
	"net/http"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/insight"
	"kakeibo/internal/store"
)

type suggestRequest struct {
	Description string `json:"description"`
}

type suggestResponse struct {
	CategoryID string  `json:"categoryId,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Suggested  bool    `json:"suggested"`
}

// handleSuggestCategory proposes a category for a description. No proposal
// is a normal outcome, not an error: manual entry never blocks on this.
// When the user keeps typing, the latest request supersedes earlier
// in-flight ones and their late responses are dropped.
func (s *Server) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	if s.insight == nil {
		writeJSON(w, http.StatusOK, suggestResponse{Suggested: false})
		return
	}

	var req suggestRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	userID := s.identity.UserID(r)
	settings, err := s.budget.Settings(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := "suggest:" + userID
	token := s.tracker.Begin(key)

	suggestion, err := s.insight.SuggestCategory(r.Context(), req.Description, settings.Categories)
	if !s.tracker.Current(key, token) {
		writeJSON(w, http.StatusOK, suggestResponse{Suggested: false})
		return
	}
	if errors.Is(err, insight.ErrNoSuggestion) {
		writeJSON(w, http.StatusOK, suggestResponse{Suggested: false})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, suggestResponse{
		CategoryID: suggestion.CategoryID,
		Confidence: suggestion.Confidence,
		Suggested:  true,
	})
}

type summaryInsightRequest struct {
	Date string `json:"date"`
}

type summaryInsightResponse struct {
	Summary         string   `json:"summary"`
	Overruns        []string `json:"overruns"`
	Recommendations []string `json:"recommendations"`
}

func (s *Server) handleCycleInsight(w http.ResponseWriter, r *http.Request) {
	if s.insight == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "insight adapter not configured"})
		return
	}

	var req summaryInsightRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	ref, err := parseDate(req.Date)
	if err != nil {
		ref = core.DateOf(time.Now())
	}

	userID := s.identity.UserID(r)
	sum, err := s.budget.SummaryFor(r.Context(), userID, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}

	settings, err := s.budget.Settings(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.ledger.InRange(r.Context(), userID, sum.Cycle.Start, sum.Cycle.End, store.Ascending)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := "summary:" + userID
	token := s.tracker.Begin(key)

	result, err := s.insight.Summarize(r.Context(), insight.SummaryRequest{
		Summary:      sum,
		Transactions: txs,
		Categories:   settings.Categories,
	})
	if !s.tracker.Current(key, token) {
		writeJSON(w, http.StatusOK, summaryInsightResponse{})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryInsightResponse{
		Summary:         result.Summary,
		Overruns:        result.Overruns,
		Recommendations: result.Recommendations,
	})
}
