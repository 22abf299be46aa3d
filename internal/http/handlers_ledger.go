package http

import (
	"net/http"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/store"
)

// handleListTransactions returns the transactions in [from, to], defaulting
// to the current month, newest first. ?order=asc flips the sort.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := core.NewDate(now.Year(), int(now.Month()), 1)
	to := core.NewDate(now.Year(), int(now.Month()), core.LastDayOfMonth(now.Year(), int(now.Month())))

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		from = parsed
	}
	if v := q.Get("to"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		to = parsed
	}
	order := store.Descending
	if q.Get("order") == "asc" {
		order = store.Ascending
	}

	txs, err := s.ledger.InRange(r.Context(), s.identity.UserID(r), from, to, order)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionToJSON(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	tx, err := req.toTransaction()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	userID := s.identity.UserID(r)
	id, err := s.ledger.Append(r.Context(), userID, tx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	tx.ID = id
	writeJSON(w, http.StatusCreated, transactionToJSON(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeBadRequest(w, "missing transaction id")
		return
	}

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	tx, err := req.toTransaction()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	tx.ID = id

	userID := s.identity.UserID(r)
	if err := s.ledger.Update(r.Context(), userID, tx); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, transactionToJSON(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeBadRequest(w, "missing transaction id")
		return
	}

	userID := s.identity.UserID(r)
	if err := s.ledger.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeJSON(w, http.StatusNoContent, nil)
}
