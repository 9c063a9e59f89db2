package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"race-league-go/middleware"
)

// Router holds everything needed to build the HTTP routes
type Router struct {
	Auth        *AuthHandler
	Admin       *AdminRoundHandler
	Rounds      *RoundHandler
	AuthMW      *middleware.AuthMiddleware
	Metrics     http.Handler
	HealthCheck func() error
}

// Build registers every route on a new mux router
func (rt Router) Build() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", rt.health).Methods(http.MethodGet)
	if rt.Metrics != nil {
		r.Handle("/metrics", rt.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", rt.Auth.LoginAPI).Methods(http.MethodPost)
	api.Handle("/auth/me", rt.AuthMW.RequireAuth(http.HandlerFunc(rt.Auth.Me))).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(rt.AuthMW.RequireAdmin)
	admin.HandleFunc("/rounds", rt.Admin.CreateRound).Methods(http.MethodPost)
	admin.HandleFunc("/rounds", rt.Admin.ListRounds).Methods(http.MethodGet)
	admin.HandleFunc("/rounds/{roundID}", rt.Admin.GetRound).Methods(http.MethodGet)
	admin.HandleFunc("/rounds/{roundID}", rt.Admin.DeleteRound).Methods(http.MethodDelete)
	admin.HandleFunc("/rounds/{roundID}/transition", rt.Admin.TransitionRound).Methods(http.MethodPost)
	admin.HandleFunc("/rounds/{roundID}/score", rt.Admin.ScoreRound).Methods(http.MethodPost)
	admin.HandleFunc("/rounds/{roundID}/publish", rt.Admin.PublishRound).Methods(http.MethodPost)
	admin.HandleFunc("/rounds/{roundID}/scores/{userID}/override", rt.Admin.OverrideScore).Methods(http.MethodPut)
	admin.HandleFunc("/rounds/{roundID}/scores/{userID}/override", rt.Admin.ClearOverride).Methods(http.MethodDelete)
	admin.HandleFunc("/races/{raceID}/sync", rt.Admin.SyncRace).Methods(http.MethodPost)
	admin.HandleFunc("/races/{raceID}/predictions", rt.Admin.DeleteRaceData).Methods(http.MethodDelete)
	admin.HandleFunc("/seasons/{seasonID}/predictions", rt.Admin.DeleteSeasonData).Methods(http.MethodDelete)

	user := api.NewRoute().Subrouter()
	user.Use(rt.AuthMW.RequireAuth)
	user.HandleFunc("/rounds", rt.Rounds.ListRounds).Methods(http.MethodGet)
	user.HandleFunc("/rounds/{roundID}", rt.Rounds.GetRound).Methods(http.MethodGet)
	user.HandleFunc("/rounds/{roundID}/entry", rt.Rounds.SubmitEntry).Methods(http.MethodPut)
	user.HandleFunc("/predictions/history", rt.Rounds.History).Methods(http.MethodGet)

	return r
}

func (rt Router) health(w http.ResponseWriter, r *http.Request) {
	if rt.HealthCheck != nil {
		if err := rt.HealthCheck(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
