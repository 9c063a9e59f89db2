package handlers

import (
	"net/http"

	"race-league-go/interfaces"
	"race-league-go/middleware"
	"race-league-go/models"
	"race-league-go/services"
)

// AdminRoundHandler serves the administrator prediction endpoints
type AdminRoundHandler struct {
	rounds interfaces.RoundAdminService
}

// NewAdminRoundHandler creates a new admin round handler
func NewAdminRoundHandler(rounds interfaces.RoundAdminService) *AdminRoundHandler {
	return &AdminRoundHandler{rounds: rounds}
}

type transitionRequest struct {
	Status models.RoundStatus `json:"status"`
	Reason string             `json:"reason"`
}

// CreateRound handles POST /api/admin/rounds
func (h *AdminRoundHandler) CreateRound(w http.ResponseWriter, r *http.Request) {
	var input services.CreateRoundInput
	if !decodeJSON(w, r, &input) {
		return
	}
	round, err := h.rounds.CreateRound(r.Context(), input, actorName(middleware.GetUserFromContext(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, round)
}

// ListRounds handles GET /api/admin/rounds?season_id=
func (h *AdminRoundHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.rounds.ListRoundsForAdmin(r.Context(), r.URL.Query().Get("season_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rounds": rounds})
}

// GetRound handles GET /api/admin/rounds/{roundID}
func (h *AdminRoundHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	details, err := h.rounds.GetRoundDetailsForAdmin(r.Context(), pathVar(r, "roundID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// TransitionRound handles POST /api/admin/rounds/{roundID}/transition
func (h *AdminRoundHandler) TransitionRound(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actor := actorName(middleware.GetUserFromContext(r))
	round, err := h.rounds.TransitionRoundStatus(r.Context(), pathVar(r, "roundID"), req.Status, actor, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// ScoreRound handles POST /api/admin/rounds/{roundID}/score
func (h *AdminRoundHandler) ScoreRound(w http.ResponseWriter, r *http.Request) {
	var opts services.RecomputeOptions
	if !decodeOptionalJSON(w, r, &opts) {
		return
	}
	opts.Actor = actorName(middleware.GetUserFromContext(r))

	result, err := h.rounds.ScoreRoundFromRaceResults(r.Context(), pathVar(r, "roundID"), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PublishRound handles POST /api/admin/rounds/{roundID}/publish
func (h *AdminRoundHandler) PublishRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.rounds.PublishRound(r.Context(), pathVar(r, "roundID"), actorName(middleware.GetUserFromContext(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// OverrideScore handles PUT /api/admin/rounds/{roundID}/scores/{userID}/override
func (h *AdminRoundHandler) OverrideScore(w http.ResponseWriter, r *http.Request) {
	var input services.OverrideInput
	if !decodeJSON(w, r, &input) {
		return
	}
	score, err := h.rounds.OverrideUserScore(r.Context(), pathVar(r, "roundID"), pathVar(r, "userID"),
		input, actorName(middleware.GetUserFromContext(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// ClearOverride handles DELETE /api/admin/rounds/{roundID}/scores/{userID}/override
func (h *AdminRoundHandler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	result, err := h.rounds.ClearUserScoreOverride(r.Context(), pathVar(r, "roundID"), pathVar(r, "userID"),
		actorName(middleware.GetUserFromContext(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DeleteRound handles DELETE /api/admin/rounds/{roundID}
func (h *AdminRoundHandler) DeleteRound(w http.ResponseWriter, r *http.Request) {
	summary, err := h.rounds.DeletePredictionRound(r.Context(), pathVar(r, "roundID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// SyncRace handles POST /api/admin/races/{raceID}/sync
func (h *AdminRoundHandler) SyncRace(w http.ResponseWriter, r *http.Request) {
	summary, err := h.rounds.SyncPredictionsForRace(r.Context(), pathVar(r, "raceID"), actorName(middleware.GetUserFromContext(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// DeleteRaceData handles DELETE /api/admin/races/{raceID}/predictions
func (h *AdminRoundHandler) DeleteRaceData(w http.ResponseWriter, r *http.Request) {
	summary, err := h.rounds.DeletePredictionDataForRace(r.Context(), pathVar(r, "raceID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// DeleteSeasonData handles DELETE /api/admin/seasons/{seasonID}/predictions
func (h *AdminRoundHandler) DeleteSeasonData(w http.ResponseWriter, r *http.Request) {
	summary, err := h.rounds.DeletePredictionDataForSeason(r.Context(), pathVar(r, "seasonID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
