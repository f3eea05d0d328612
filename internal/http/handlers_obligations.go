package http

import (
	"net/http"

	"cashflow/internal/core"
	"cashflow/internal/log"
)

type markPaidRequest struct {
	Start  core.Date `json:"start"`
	End    core.Date `json:"end"`
	PaidOn core.Date `json:"paid_on"`
}

func (s *Server) handleListObligations(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListObligations(r.Context())
	if err != nil {
		writeFailure(w, r, err, log.OpList)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateObligation(w http.ResponseWriter, r *http.Request) {
	var o core.Obligation
	if err := decodeJSON(w, r, &o); err != nil {
		writeFailure(w, r, err, log.OpCreate)
		return
	}
	o.ID = 0
	created, err := s.store.CreateObligation(r.Context(), o)
	if err != nil {
		writeFailure(w, r, err, log.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateObligation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	var patch core.ObligationPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	updated, err := s.store.UpdateObligation(r.Context(), id, patch)
	if err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteObligation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, r, err, log.OpDelete)
		return
	}
	if err := s.store.DeleteObligation(r.Context(), id); err != nil {
		writeFailure(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMarkPeriodPaid marks every open obligation due in [start, end] as paid.
func (s *Server) handleMarkPeriodPaid(w http.ResponseWriter, r *http.Request) {
	var req markPaidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	if req.Start.IsZero() || req.End.IsZero() {
		writeFailure(w, r, badRequest("start and end are required"), log.OpUpdate)
		return
	}
	if req.End.Before(req.Start) {
		writeFailure(w, r, badRequest("end must not be before start"), log.OpUpdate)
		return
	}
	if req.PaidOn.IsZero() {
		req.PaidOn = s.projections.Today()
	}

	n, err := s.store.MarkPeriodPaid(r.Context(), req.Start, req.End, req.PaidOn)
	if err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
