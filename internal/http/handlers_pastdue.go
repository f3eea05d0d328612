package http

import (
	"net/http"

	"cashflow/internal/core"
	"cashflow/internal/log"
)

func (s *Server) handleListPastDue(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListPastDueInstances(r.Context())
	if err != nil {
		writeFailure(w, r, err, log.OpList)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddPastDue(w http.ResponseWriter, r *http.Request) {
	var p core.PastDueInstance
	if err := decodeJSON(w, r, &p); err != nil {
		writeFailure(w, r, err, log.OpCreate)
		return
	}
	p.ID = 0
	if p.CreatedDate.IsZero() {
		p.CreatedDate = s.projections.Today()
	}
	created, err := s.store.AddPastDueInstance(r.Context(), p)
	if err != nil {
		writeFailure(w, r, err, log.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeletePastDue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, r, err, log.OpDelete)
		return
	}
	if err := s.store.DeletePastDueInstance(r.Context(), id); err != nil {
		writeFailure(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
