package http

import (
	"net/http"

	"cashflow/internal/core"
	"cashflow/internal/log"
)

type overrideRequest struct {
	Amount *core.Money `json:"amount"`
}

func (s *Server) handleListCreditAccounts(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListCreditAccounts(r.Context())
	if err != nil {
		writeFailure(w, r, err, log.OpList)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateCreditAccount(w http.ResponseWriter, r *http.Request) {
	var a core.CreditAccount
	if err := decodeJSON(w, r, &a); err != nil {
		writeFailure(w, r, err, log.OpCreate)
		return
	}
	a.ID = 0
	created, err := s.store.CreateCreditAccount(r.Context(), a)
	if err != nil {
		writeFailure(w, r, err, log.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCreditAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	var patch core.CreditAccountPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	updated, err := s.store.UpdateCreditAccount(r.Context(), id, patch)
	if err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleSetPaymentOverride sets the minimum payment for one account-month.
func (s *Server) handleSetPaymentOverride(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	year, err := pathInt(r, "year")
	if err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	month, err := pathInt(r, "month")
	if err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	var req overrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	if req.Amount == nil {
		writeFailure(w, r, badRequest("amount is required"), log.OpUpdate)
		return
	}

	override := core.PaymentOverride{CreditAccountID: id, Year: year, Month: month, Amount: *req.Amount}
	if err := s.store.SetPaymentOverride(r.Context(), override); err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, override)
}
