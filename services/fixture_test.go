package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/database"
	"race-league-go/models"
)

var (
	teamA = models.MustID("65a0000000000000000000a1")
	teamB = models.MustID("65a0000000000000000000a2")
	teamC = models.MustID("65a0000000000000000000a3")
	teamD = models.MustID("65a0000000000000000000a4")

	alice = models.MustID("65a0000000000000000000b1")
	bruno = models.MustID("65a0000000000000000000b2")
	carla = models.MustID("65a0000000000000000000b3")
	david = models.MustID("65a0000000000000000000b4")
	// erin takes part in the season but never picked a team
	erin = models.MustID("65a0000000000000000000b5")
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *database.MemoryStore
	svc    *PredictionService
	season *models.Season
	race   *models.Race
	now    time.Time
}

// newFixture builds a season where the race ranks the teams A, C, B, D
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := database.NewMemoryStore()
	season := &models.Season{
		ID:           primitive.NewObjectID(),
		Name:         "Test Season",
		Year:         2025,
		Participants: []primitive.ObjectID{alice, bruno, carla, david, erin},
		Teams:        []primitive.ObjectID{teamA, teamB, teamC, teamD},
	}
	store.PutSeason(season)

	for user, team := range map[primitive.ObjectID]primitive.ObjectID{
		alice: teamA, bruno: teamB, carla: teamC, david: teamD,
	} {
		store.PutAssignment(&models.TeamAssignment{SeasonID: season.ID, UserID: user, TeamID: team, Active: true})
	}

	race := &models.Race{
		ID:       primitive.NewObjectID(),
		SeasonID: season.ID,
		Name:     "Round 1",
		Date:     time.Date(2025, 3, 16, 14, 0, 0, 0, time.UTC),
		Results: []models.RaceResult{
			{UserID: alice, PointsEarned: 25},
			{UserID: carla, PointsEarned: 18},
			{UserID: bruno, PointsEarned: 15},
			{UserID: david, PointsEarned: 2},
		},
	}
	store.PutRace(race)

	svc := NewPredictionService(PredictionRepositories{
		Rounds:     store.Rounds(),
		Entries:    store.Entries(),
		Scores:     store.Scores(),
		Races:      store.Races(),
		Seasons:    store.Seasons(),
		Transactor: store,
	}, models.DefaultScoringConfig(), NewMetrics(prometheus.NewRegistry()))

	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  store,
		svc:    svc,
		season: season,
		race:   race,
		now:    time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	svc.now = func() time.Time { return f.now }
	return f
}

// tick advances the service clock
func (f *fixture) tick() {
	f.now = f.now.Add(time.Minute)
}

func (f *fixture) createRound() *models.PredictionRound {
	f.t.Helper()
	return f.createRoundFor(f.race)
}

func (f *fixture) createRoundFor(race *models.Race) *models.PredictionRound {
	f.t.Helper()
	round, err := f.svc.CreateRound(f.ctx, CreateRoundInput{
		SeasonID: f.season.ID.Hex(),
		RaceID:   race.ID.Hex(),
	}, "admin@example.com")
	require.NoError(f.t, err)
	return round
}

func (f *fixture) moveTo(roundID primitive.ObjectID, statuses ...models.RoundStatus) *models.PredictionRound {
	f.t.Helper()
	var round *models.PredictionRound
	for _, status := range statuses {
		f.tick()
		var err error
		round, err = f.svc.TransitionRoundStatus(f.ctx, roundID.Hex(), status, "admin@example.com", "")
		require.NoError(f.t, err)
	}
	return round
}

func (f *fixture) openRound() *models.PredictionRound {
	f.t.Helper()
	round := f.createRound()
	return f.moveTo(round.ID, models.RoundStatusOpen)
}

func (f *fixture) submit(roundID, userID primitive.ObjectID, p1, p2, p3, last primitive.ObjectID) *models.PredictionEntry {
	f.t.Helper()
	f.tick()
	entry, err := f.svc.UpsertUserEntry(f.ctx, roundID.Hex(), userID, PickInput{
		P1: p1.Hex(), P2: p2.Hex(), P3: p3.Hex(), LastPlace: last.Hex(),
	})
	require.NoError(f.t, err)
	return entry
}

// scoredRound returns a round where alice picked A,B,C,D and bruno picked D,C,B,A
func (f *fixture) scoredRound() *models.PredictionRound {
	f.t.Helper()
	return f.scoredRoundFor(f.race)
}

func (f *fixture) scoredRoundFor(race *models.Race) *models.PredictionRound {
	f.t.Helper()
	round := f.createRoundFor(race)
	f.moveTo(round.ID, models.RoundStatusOpen)
	f.submit(round.ID, alice, teamA, teamB, teamC, teamD)
	f.submit(round.ID, bruno, teamD, teamC, teamB, teamA)
	return f.moveTo(round.ID, models.RoundStatusLocked, models.RoundStatusScored)
}

func (f *fixture) round(id primitive.ObjectID) *models.PredictionRound {
	f.t.Helper()
	round, err := f.store.Rounds().FindByID(f.ctx, id)
	require.NoError(f.t, err)
	return round
}

func (f *fixture) score(roundID, userID primitive.ObjectID) *models.PredictionScore {
	f.t.Helper()
	score, err := f.store.Scores().FindByRoundAndUser(f.ctx, roundID, userID)
	require.NoError(f.t, err)
	return score
}

// addRace stores another race of the season with the same results as the first
func (f *fixture) addRace(name string, date time.Time) *models.Race {
	race := &models.Race{
		SeasonID: f.season.ID,
		Name:     name,
		Date:     date,
		Results:  append([]models.RaceResult{}, f.race.Results...),
	}
	f.store.PutRace(race)
	return race
}

func (f *fixture) publish(roundID primitive.ObjectID) *models.PredictionRound {
	f.t.Helper()
	f.tick()
	round, err := f.svc.PublishRound(f.ctx, roundID.Hex(), "admin@example.com")
	require.NoError(f.t, err)
	return round
}

func (f *fixture) setResults(results ...models.RaceResult) {
	race := *f.race
	race.Results = results
	f.store.PutRace(&race)
}

func ptr[T any](v T) *T {
	return &v
}
