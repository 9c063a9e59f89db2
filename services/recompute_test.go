package services

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/models"
)

func TestScoreRound_SkipsWhenResultsUnchanged(t *testing.T) {
	f := newFixture(t)
	round := f.scoredRound()
	before := f.round(round.ID)
	scoreBefore := f.score(round.ID, alice)

	f.tick()
	result, err := f.svc.ScoreRoundFromRaceResults(f.ctx, round.ID.Hex(), RecomputeOptions{Actor: "admin"})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 0, result.ScoresWritten)
	assert.Equal(t, before.Version, result.Version)

	after := f.round(round.ID)
	assert.Len(t, after.Transitions, len(before.Transitions))
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, scoreBefore.UpdatedAt, f.score(round.ID, alice).UpdatedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.recomputeTotal.WithLabelValues(outcomeSkipped)))
}

func TestScoreRound_RescoresWhenResultsChange(t *testing.T) {
	f := newFixture(t)
	round := f.scoredRound()
	f.setResults(
		models.RaceResult{UserID: bruno, PointsEarned: 30},
		models.RaceResult{UserID: alice, PointsEarned: 25},
		models.RaceResult{UserID: carla, PointsEarned: 18},
		models.RaceResult{UserID: david, PointsEarned: 2},
	)

	f.tick()
	result, err := f.svc.ScoreRoundFromRaceResults(f.ctx, round.ID.Hex(), RecomputeOptions{Actor: "admin"})
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, models.RoundStatusScored, result.Status)

	assert.Equal(t, 16.0, f.score(round.ID, alice).Total)
	assert.Equal(t, 6.0, f.score(round.ID, bruno).Total)

	stored := f.round(round.ID)
	last := stored.Transitions[len(stored.Transitions)-1]
	assert.Equal(t, models.RoundStatusScored, last.From)
	assert.Equal(t, models.RoundStatusScored, last.To)
	assert.Equal(t, models.TriggerScore, last.Trigger)
	assert.Equal(t, result.RaceResultsHash, stored.LastRaceResultsHash)
}

func TestScoreRound_ForceRescoresIdenticalResults(t *testing.T) {
	f := newFixture(t)
	round := f.scoredRound()

	f.tick()
	result, err := f.svc.ScoreRoundFromRaceResults(f.ctx, round.ID.Hex(), RecomputeOptions{Force: true, Actor: "admin"})
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 4, result.ScoresWritten)

	stored := f.round(round.ID)
	assert.Equal(t, models.TriggerRescore, stored.Transitions[len(stored.Transitions)-1].Trigger)
	assert.Equal(t, f.now, f.score(round.ID, alice).GeneratedFrom.GeneratedAt)
}

func TestScoreRound_MissingEntriesScoreZero(t *testing.T) {
	f := newFixture(t)
	round := f.scoredRound()

	for _, user := range []primitive.ObjectID{carla, david} {
		score := f.score(round.ID, user)
		assert.Equal(t, 0.0, score.Total)
		assert.Nil(t, score.Predicted)
		assert.Empty(t, score.Breakdown)
		assert.Equal(t, teamA, score.Actual.P1)
	}

	_, err := f.store.Scores().FindByRoundAndUser(f.ctx, round.ID, erin)
	assert.Error(t, err, "participants without a team get no score row")
}

func TestScoreRound_StatusGuards(t *testing.T) {
	f := newFixture(t)
	round := f.createRound()

	_, err := f.svc.ScoreRoundFromRaceResults(f.ctx, round.ID.Hex(), RecomputeOptions{})
	assert.True(t, IsKind(err, KindConflict), "draft")

	f.moveTo(round.ID, models.RoundStatusOpen)
	_, err = f.svc.ScoreRoundFromRaceResults(f.ctx, round.ID.Hex(), RecomputeOptions{})
	assert.True(t, IsKind(err, KindConflict), "open")

	f.moveTo(round.ID, models.RoundStatusLocked, models.RoundStatusScored)
	f.publish(round.ID)

	_, err = f.svc.ScoreRoundFromRaceResults(f.ctx, round.ID.Hex(), RecomputeOptions{})
	assert.True(t, IsKind(err, KindConflict), "published without force")

	result, err := f.svc.ScoreRoundFromRaceResults(f.ctx, round.ID.Hex(), RecomputeOptions{Force: true, Reason: "late penalty"})
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusScored, result.Status)

	stored := f.round(round.ID)
	last := stored.Transitions[len(stored.Transitions)-1]
	assert.Equal(t, models.RoundStatusPublished, last.From)
	assert.Equal(t, models.RoundStatusScored, last.To)
	assert.Equal(t, "late penalty", last.Reason)
	assert.Equal(t, models.ActorSystem, last.By)
}

func TestScoreRound_PreservesOverrides(t *testing.T) {
	f := newFixture(t)
	round := f.scoredRound()

	_, err := f.svc.OverrideUserScore(f.ctx, round.ID.Hex(), bruno.Hex(), OverrideInput{Total: ptr(20.0), Reason: "stewards decision"}, "admin")
	require.NoError(t, err)

	f.tick()
	result, err := f.svc.ScoreRoundFromRaceResults(f.ctx, round.ID.Hex(), RecomputeOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{bruno}, result.PreservedOverrides)
	assert.True(t, result.RequiresReview)
	assert.True(t, f.round(round.ID).RequiresReview)

	kept := f.score(round.ID, bruno)
	assert.Equal(t, 20.0, kept.Total)
	assert.True(t, kept.IsOverridden)
	assert.Equal(t, "stewards decision", kept.OverrideReason)
	assert.Equal(t, 16.0, f.score(round.ID, alice).Total)

	f.tick()
	result, err = f.svc.ScoreRoundFromRaceResults(f.ctx, round.ID.Hex(), RecomputeOptions{Force: true, PreserveOverrides: ptr(false)})
	require.NoError(t, err)
	assert.Empty(t, result.PreservedOverrides)
	assert.False(t, result.RequiresReview)

	reset := f.score(round.ID, bruno)
	assert.Equal(t, 12.0, reset.Total)
	assert.False(t, reset.IsOverridden)
	assert.Empty(t, reset.OverrideReason)
	assert.Nil(t, reset.OverriddenAt)
}

func TestScoreRound_SerializedPerRound(t *testing.T) {
	f := newFixture(t)
	round := f.scoredRound()
	start := f.round(round.ID).Version

	const runs = 8
	var wg sync.WaitGroup
	errs := make(chan error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ScoreRoundFromRaceResults(f.ctx, round.ID.Hex(), RecomputeOptions{Force: true})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, start+runs, f.round(round.ID).Version)
	assert.Equal(t, 0, f.svc.locks.size())
}

func TestScoreRound_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ScoreRoundFromRaceResults(f.ctx, "65a0000000000000000000ff", RecomputeOptions{})
	assert.True(t, IsKind(err, KindNotFound))

	_, err = f.svc.ScoreRoundFromRaceResults(f.ctx, "nope", RecomputeOptions{})
	assert.True(t, IsKind(err, KindValidation))
}
