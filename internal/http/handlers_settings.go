package http

import (
	"net/http"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.budget.Settings(r.Context(), s.identity.UserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsToJSON(settings))
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsJSON
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	settings, err := req.toSettings()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := settings.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	userID := s.identity.UserID(r)
	if err := s.budget.SaveSettings(r.Context(), userID, settings); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, settingsToJSON(settings))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.PathValue("year"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	budget, err := s.budget.BudgetForYear(r.Context(), s.identity.UserID(r), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if budget == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no budget for year"})
		return
	}
	writeJSON(w, http.StatusOK, budgetToJSON(budget))
}

func (s *Server) handlePutBudget(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.PathValue("year"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req budgetJSON
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	budget := req.toBudget(year)
	if err := budget.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	userID := s.identity.UserID(r)
	if err := s.budget.SaveBudget(r.Context(), userID, budget); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, budgetToJSON(&budget))
}
