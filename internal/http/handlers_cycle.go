package http

import (
	"net/http"
	"time"

	"kakeibo/internal/core"
)

// refDate reads the optional ?date= query parameter, defaulting to today.
func refDate(r *http.Request) (core.Date, error) {
	if v := r.URL.Query().Get("date"); v != "" {
		return parseDate(v)
	}
	return core.DateOf(time.Now()), nil
}

func (s *Server) handleCycleSummary(w http.ResponseWriter, r *http.Request) {
	userID := s.identity.UserID(r)
	ref, err := refDate(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	key := userID + ":" + ref.String()
	if sum, ok := s.summaryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, summaryToJSON(sum))
		return
	}

	sum, err := s.budget.SummaryFor(r.Context(), userID, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.summaryCache.Set(key, sum)
	writeJSON(w, http.StatusOK, summaryToJSON(sum))
}

func (s *Server) handleCyclesForYear(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.PathValue("year"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	sums, err := s.budget.SummariesForYear(r.Context(), s.identity.UserID(r), year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]summaryJSON, 0, len(sums))
	for _, sum := range sums {
		out = append(out, summaryToJSON(sum))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	userID := s.identity.UserID(r)
	ref, err := refDate(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	key := userID + ":" + ref.String()
	if days, ok := s.calendarCache.Get(key); ok {
		writeJSON(w, http.StatusOK, dayBalancesToJSON(days))
		return
	}

	days, err := s.budget.Calendar(r.Context(), userID, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.calendarCache.Set(key, days)
	writeJSON(w, http.StatusOK, dayBalancesToJSON(days))
}

func (s *Server) handleAnnualTrend(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.PathValue("year"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	trend, err := s.budget.AnnualTrend(r.Context(), s.identity.UserID(r), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monthBalancesToJSON(trend))
}
