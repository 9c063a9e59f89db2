package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/models"
)

func roundIn(status models.RoundStatus) *models.PredictionRound {
	round := models.NewPredictionRound(primitive.NewObjectID(), primitive.NewObjectID(),
		models.DefaultScoringConfig(), "admin", time.Now())
	round.Status = status
	return round
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.RoundStatus
		want     bool
	}{
		{models.RoundStatusDraft, models.RoundStatusOpen, true},
		{models.RoundStatusOpen, models.RoundStatusLocked, true},
		{models.RoundStatusLocked, models.RoundStatusScored, true},
		{models.RoundStatusScored, models.RoundStatusPublished, true},
		{models.RoundStatusLocked, models.RoundStatusOpen, true},
		{models.RoundStatusScored, models.RoundStatusOpen, true},
		{models.RoundStatusPublished, models.RoundStatusOpen, true},
		{models.RoundStatusOpen, models.RoundStatusOpen, true},
		{models.RoundStatusDraft, models.RoundStatusLocked, false},
		{models.RoundStatusOpen, models.RoundStatusScored, false},
		{models.RoundStatusLocked, models.RoundStatusPublished, false},
		{models.RoundStatusPublished, models.RoundStatusScored, false},
		{models.RoundStatusOpen, models.RoundStatusDraft, false},
		{models.RoundStatusPublished, models.RoundStatusDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestApplyTransition_ForwardSetsTimestampAndLogs(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	round := roundIn(models.RoundStatusDraft)

	changed, err := ApplyTransition(round, TransitionRequest{To: models.RoundStatusOpen, Actor: "admin"}, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.RoundStatusOpen, round.Status)
	require.NotNil(t, round.OpenedAt)
	assert.Equal(t, now, *round.OpenedAt)

	require.Len(t, round.Transitions, 1)
	entry := round.Transitions[0]
	assert.Equal(t, models.RoundStatusDraft, entry.From)
	assert.Equal(t, models.RoundStatusOpen, entry.To)
	assert.Equal(t, "admin", entry.By)
	assert.Equal(t, models.TriggerManual, entry.Trigger)
	assert.NotEmpty(t, entry.ID)
}

func TestApplyTransition_SameStatusIsNoop(t *testing.T) {
	round := roundIn(models.RoundStatusLocked)

	changed, err := ApplyTransition(round, TransitionRequest{To: models.RoundStatusLocked}, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, round.Transitions)
	assert.Nil(t, round.LockedAt)
}

func TestApplyTransition_ReopenNeedsReason(t *testing.T) {
	for _, from := range []models.RoundStatus{models.RoundStatusLocked, models.RoundStatusScored, models.RoundStatusPublished} {
		t.Run(string(from), func(t *testing.T) {
			round := roundIn(from)

			_, err := ApplyTransition(round, TransitionRequest{To: models.RoundStatusOpen, Reason: "  "}, time.Now())
			require.Error(t, err)
			assert.True(t, IsKind(err, KindValidation))
			assert.Equal(t, from, round.Status)
			assert.Empty(t, round.Transitions)

			changed, err := ApplyTransition(round, TransitionRequest{To: models.RoundStatusOpen, Reason: "late entry"}, time.Now())
			require.NoError(t, err)
			assert.True(t, changed)
			assert.Equal(t, "late entry", round.Transitions[0].Reason)
		})
	}
}

func TestApplyTransition_IllegalEdgeIsConflict(t *testing.T) {
	round := roundIn(models.RoundStatusDraft)

	_, err := ApplyTransition(round, TransitionRequest{To: models.RoundStatusPublished}, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 409, svcErr.StatusCode())
	assert.Equal(t, models.RoundStatusDraft, round.Status)
}

func TestApplyTransition_UnknownStatus(t *testing.T) {
	_, err := ApplyTransition(roundIn(models.RoundStatusDraft), TransitionRequest{To: "archived"}, time.Now())
	assert.True(t, IsKind(err, KindValidation))
}

func TestApplyTransition_PublishClearsReview(t *testing.T) {
	round := roundIn(models.RoundStatusScored)
	round.RequiresReview = true

	_, err := ApplyTransition(round, TransitionRequest{To: models.RoundStatusPublished}, time.Now())
	require.NoError(t, err)
	assert.False(t, round.RequiresReview)
	assert.NotNil(t, round.PublishedAt)
}
