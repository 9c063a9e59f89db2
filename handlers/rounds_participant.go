package handlers

import (
	"net/http"

	"race-league-go/interfaces"
	"race-league-go/middleware"
	"race-league-go/services"
)

// RoundHandler serves the participant prediction endpoints
type RoundHandler struct {
	rounds interfaces.RoundParticipantService
}

// NewRoundHandler creates a new participant round handler
func NewRoundHandler(rounds interfaces.RoundParticipantService) *RoundHandler {
	return &RoundHandler{rounds: rounds}
}

// ListRounds handles GET /api/rounds?season_id=
func (h *RoundHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	rounds, err := h.rounds.ListRoundsForUser(r.Context(), user.ID, r.URL.Query().Get("season_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rounds": rounds})
}

// GetRound handles GET /api/rounds/{roundID}
func (h *RoundHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	details, err := h.rounds.GetRoundDetailsForUser(r.Context(), pathVar(r, "roundID"), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// SubmitEntry handles PUT /api/rounds/{roundID}/entry
func (h *RoundHandler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	var input services.PickInput
	if !decodeJSON(w, r, &input) {
		return
	}
	user := middleware.GetUserFromContext(r)
	entry, err := h.rounds.UpsertUserEntry(r.Context(), pathVar(r, "roundID"), user.ID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// History handles GET /api/predictions/history?season_id=
func (h *RoundHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	items, err := h.rounds.GetUserPredictionHistory(r.Context(), user.ID, r.URL.Query().Get("season_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": items})
}
