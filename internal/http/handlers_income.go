package http

import (
	"net/http"

	"cashflow/internal/core"
	"cashflow/internal/log"
)

// incomeRuleRequest defaults Active to true when the field is omitted.
type incomeRuleRequest struct {
	core.RecurringIncomeRule
	Active *bool `json:"active"`
}

func (s *Server) handleListIncomeRules(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListRecurringIncomeRules(r.Context())
	if err != nil {
		writeFailure(w, r, err, log.OpList)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateIncomeRule(w http.ResponseWriter, r *http.Request) {
	var req incomeRuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, err, log.OpCreate)
		return
	}
	rule := req.RecurringIncomeRule
	rule.ID = 0
	rule.Active = req.Active == nil || *req.Active

	created, err := s.store.CreateRecurringIncomeRule(r.Context(), rule)
	if err != nil {
		writeFailure(w, r, err, log.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateIncomeRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	var patch core.RecurringIncomePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	updated, err := s.store.UpdateRecurringIncomeRule(r.Context(), id, patch)
	if err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeactivateIncomeRule soft-deletes the rule; it stops projecting income.
func (s *Server) handleDeactivateIncomeRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, r, err, log.OpDelete)
		return
	}
	if err := s.store.DeactivateRecurringIncomeRule(r.Context(), id); err != nil {
		writeFailure(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
