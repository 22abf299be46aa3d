package http

import (
	"net/http"
)

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	entries, err := s.budget.ListRecurring(r.Context(), s.identity.UserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]recurringJSON, 0, len(entries))
	for _, rp := range entries {
		out = append(out, recurringToJSON(rp))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	rp, err := req.toRecurring()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if rp.Title == "" {
		writeBadRequest(w, "missing title")
		return
	}

	id, err := s.budget.PutRecurring(r.Context(), s.identity.UserID(r), rp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rp.ID = id
	writeJSON(w, http.StatusCreated, recurringToJSON(rp))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeBadRequest(w, "missing recurring id")
		return
	}

	if err := s.budget.DeleteRecurring(r.Context(), s.identity.UserID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
