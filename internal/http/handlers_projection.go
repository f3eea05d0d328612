package http

import (
	"net/http"

	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/projection"
)

type projectionResponse struct {
	Today       core.Date           `json:"today"`
	Checkpoints []projection.Result `json:"checkpoints"`
}

type checkpointsResponse struct {
	Today       core.Date           `json:"today"`
	Checkpoints []core.Date         `json:"checkpoints"`
	Periods     []projection.Period `json:"periods"`
}

// handleProjection recomputes the projection for today, or for ?today=YYYY-MM-DD.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	today, explicit, err := queryDate(r, "today")
	if err != nil {
		writeFailure(w, r, err, log.OpProject)
		return
	}
	if !explicit {
		today = s.projections.Today()
	}

	results, err := s.projections.ProjectAt(r.Context(), today)
	if err != nil {
		writeFailure(w, r, err, log.OpProject)
		return
	}
	writeJSON(w, http.StatusOK, projectionResponse{Today: today, Checkpoints: results})
}

func (s *Server) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	checkpoints, err := s.projections.Checkpoints(r.Context())
	if err != nil {
		writeFailure(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, checkpointsResponse{
		Today:       s.projections.Today(),
		Checkpoints: checkpoints,
		Periods:     projection.Periods(checkpoints),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetCheckpointSettings(r.Context())
	if err != nil {
		writeFailure(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch core.CheckpointSettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	settings, err := s.store.UpdateCheckpointSettings(r.Context(), patch)
	if err != nil {
		writeFailure(w, r, err, log.OpUpdate)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Checkpoint settings updated",
		log.FieldCheckpointMode, string(settings.Mode), "count", settings.Count)
	writeJSON(w, http.StatusOK, settings)
}
