package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"race-league-go/database"
	"race-league-go/middleware"
	"race-league-go/models"
	"race-league-go/services"
)

const seedPassword = "password"

var (
	aliceID = models.MustID("64f000000000000000000101")
	brunoID = models.MustID("64f000000000000000000102")
	teams   = services.DemoTeamIDs()
)

type apiFixture struct {
	t      *testing.T
	router *mux.Router
	admin  string
	alice  string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	store := database.NewMemoryStore()

	seeder := services.NewLeagueSeeder(store.Users(), store.SeasonWriter(), store.RaceWriter())
	require.NoError(t, seeder.SeedUsers(ctx, "admin@example.com", seedPassword))
	require.NoError(t, seeder.SeedLeague(ctx))

	registry := prometheus.NewRegistry()
	predictions := services.NewPredictionService(services.PredictionRepositories{
		Rounds:     store.Rounds(),
		Entries:    store.Entries(),
		Scores:     store.Scores(),
		Races:      store.Races(),
		Seasons:    store.Seasons(),
		Transactor: store,
	}, models.DefaultScoringConfig(), services.NewMetrics(registry))
	auth := services.NewAuthService(store.Users(), "handler-test-secret", time.Hour)

	router := Router{
		Auth:    NewAuthHandler(auth, false),
		Admin:   NewAdminRoundHandler(predictions),
		Rounds:  NewRoundHandler(predictions),
		AuthMW:  middleware.NewAuthMiddleware(auth),
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}.Build()

	f := &apiFixture{t: t, router: router}
	f.admin = f.login("admin@example.com")
	f.alice = f.login("alice@example.com")
	return f
}

func (f *apiFixture) login(email string) string {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": seedPassword})
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.AuthResponse
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(f.t, resp.Token)
	return resp.Token
}

func (f *apiFixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (f *apiFixture) createRound() string {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/admin/rounds", f.admin, map[string]string{
		"season_id": services.DemoSeasonID.Hex(),
		"race_id":   services.DemoRaceID.Hex(),
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.PredictionRound](f.t, rec).ID.Hex()
}

func (f *apiFixture) transition(roundID string, status models.RoundStatus) {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/admin/rounds/"+roundID+"/transition", f.admin, map[string]string{"status": string(status)})
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())
}

func picks(p1, p2, p3, last int) map[string]string {
	return map[string]string{
		"p1":         teams[p1].Hex(),
		"p2":         teams[p2].Hex(),
		"p3":         teams[p3].Hex(),
		"last_place": teams[last].Hex(),
	}
}

func TestAPI_AuthGates(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/api/rounds", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/rounds", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/admin/rounds", f.alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/admin/rounds", f.admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/auth/me", f.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[models.User](t, rec)
	assert.Equal(t, aliceID, me.ID)
	assert.Empty(t, me.Password)
}

func TestAPI_Login(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": seedPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/rounds", nil)
	req.AddCookie(cookies[0])
	cookieRec := httptest.NewRecorder()
	f.router.ServeHTTP(cookieRec, req)
	assert.Equal(t, http.StatusOK, cookieRec.Code)
}

func TestAPI_RoundLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	roundID := f.createRound()

	rec := f.do(http.MethodPost, "/api/admin/rounds", f.admin, map[string]string{
		"season_id": services.DemoSeasonID.Hex(),
		"race_id":   services.DemoRaceID.Hex(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPut, "/api/rounds/"+roundID+"/entry", f.alice, picks(0, 1, 2, 4))
	assert.Equal(t, http.StatusConflict, rec.Code, "draft rounds reject picks")

	f.transition(roundID, models.RoundStatusOpen)

	rec = f.do(http.MethodPut, "/api/rounds/"+roundID+"/entry", f.alice, picks(0, 0, 2, 4))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "p2", decode[errorResponse](t, rec).Field)

	rec = f.do(http.MethodPut, "/api/rounds/"+roundID+"/entry", f.alice, picks(0, 1, 2, 4))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	f.transition(roundID, models.RoundStatusLocked)

	rec = f.do(http.MethodPost, "/api/admin/rounds/"+roundID+"/publish", f.admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "locked rounds cannot be published")

	rec = f.do(http.MethodPost, "/api/admin/rounds/"+roundID+"/score", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[services.RecomputeResult](t, rec)
	assert.Equal(t, models.RoundStatusScored, result.Status)
	assert.Equal(t, 5, result.ScoresWritten)

	rec = f.do(http.MethodGet, "/api/rounds/"+roundID, f.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[services.UserRoundDetails](t, rec).Score, "scores stay hidden until published")

	rec = f.do(http.MethodPost, "/api/admin/rounds/"+roundID+"/publish", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/rounds/"+roundID, f.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details := decode[services.UserRoundDetails](t, rec)
	require.NotNil(t, details.Score)
	assert.Equal(t, 22.0, details.Score.Total)
	assert.Len(t, details.Leaderboard, 5)

	rec = f.do(http.MethodGet, "/api/predictions/history", f.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[map[string][]services.HistoryItem](t, rec)["history"]
	require.Len(t, history, 1)
	assert.Equal(t, 22.0, history[0].RunningTotal)

	rec = f.do(http.MethodGet, "/api/admin/rounds/"+roundID, f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	adminDetails := decode[services.AdminRoundDetails](t, rec)
	assert.Len(t, adminDetails.Transitions, 4)
	assert.Equal(t, "admin@example.com", adminDetails.Transitions[0].By)
}

func TestAPI_Overrides(t *testing.T) {
	f := newAPIFixture(t)
	roundID := f.createRound()
	f.transition(roundID, models.RoundStatusOpen)
	f.transition(roundID, models.RoundStatusLocked)
	f.transition(roundID, models.RoundStatusScored)
	path := "/api/admin/rounds/" + roundID + "/scores/" + brunoID.Hex() + "/override"

	rec := f.do(http.MethodPut, path, f.admin, `{"total": 3, "reason": "x", "extra": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	rec = f.do(http.MethodPut, path, f.admin, map[string]interface{}{"total": 3})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reason", decode[errorResponse](t, rec).Field)

	rec = f.do(http.MethodPut, path, f.admin, map[string]interface{}{"total": 3, "reason": "jump start"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	score := decode[models.PredictionScore](t, rec)
	assert.Equal(t, 3.0, score.Total)
	assert.Equal(t, "admin@example.com", score.OverriddenBy)

	rec = f.do(http.MethodDelete, path, f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[services.RecomputeResult](t, rec).RequiresReview)

	rec = f.do(http.MethodDelete, path, f.admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_SyncAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	roundID := f.createRound()
	f.transition(roundID, models.RoundStatusOpen)
	f.transition(roundID, models.RoundStatusLocked)

	rec := f.do(http.MethodPost, "/api/admin/races/"+services.DemoRaceID.Hex()+"/sync", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[services.SyncSummary](t, rec)
	assert.Equal(t, 1, summary.Rescored)

	rec = f.do(http.MethodDelete, "/api/admin/rounds/"+roundID, f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[services.DeleteSummary](t, rec).Rounds)

	rec = f.do(http.MethodGet, "/api/admin/rounds/"+roundID, f.admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, "/api/admin/seasons/"+services.DemoSeasonID.Hex()+"/predictions", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.DeleteSummary{}, decode[services.DeleteSummary](t, rec))

	rec = f.do(http.MethodDelete, "/api/admin/races/bad-id/predictions", f.admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)
	roundID := f.createRound()
	f.transition(roundID, models.RoundStatusOpen)

	rec := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `race_league_prediction_transitions_total{to="open"} 1`)

	degraded := Router{HealthCheck: func() error { return errors.New("mongo down") }}.Build()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	out := httptest.NewRecorder()
	degraded.ServeHTTP(out, req)
	assert.Equal(t, http.StatusServiceUnavailable, out.Code)
	assert.Contains(t, out.Body.String(), "mongo down")
}
