package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/models"
)

func newTestRound() *models.PredictionRound {
	return models.NewPredictionRound(primitive.NewObjectID(), primitive.NewObjectID(),
		models.DefaultScoringConfig(), "admin", time.Now())
}

func TestMemoryRounds_CreateRejectsDuplicateSeasonRace(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := newTestRound()
	require.NoError(t, store.Rounds().Create(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second := models.NewPredictionRound(first.SeasonID, first.RaceID, models.DefaultScoringConfig(), "admin", time.Now())
	assert.ErrorIs(t, store.Rounds().Create(ctx, second), ErrDuplicate)
}

func TestMemoryRounds_SaveDetectsStaleVersion(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	round := newTestRound()
	require.NoError(t, store.Rounds().Create(ctx, round))

	a, err := store.Rounds().FindByID(ctx, round.ID)
	require.NoError(t, err)
	b, err := store.Rounds().FindByID(ctx, round.ID)
	require.NoError(t, err)

	a.Status = models.RoundStatusOpen
	require.NoError(t, store.Rounds().Save(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.Status = models.RoundStatusLocked
	assert.ErrorIs(t, store.Rounds().Save(ctx, b), ErrVersionConflict)

	stored, err := store.Rounds().FindByID(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusOpen, stored.Status)
}

func TestMemoryRounds_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	round := newTestRound()
	require.NoError(t, store.Rounds().Create(ctx, round))

	loaded, err := store.Rounds().FindByID(ctx, round.ID)
	require.NoError(t, err)
	loaded.Transitions = append(loaded.Transitions, models.TransitionLogEntry{ID: "x"})

	again, err := store.Rounds().FindByID(ctx, round.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Transitions)
}

func TestMemoryRounds_ListFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	open := newTestRound()
	open.Status = models.RoundStatusOpen
	draft := newTestRound()
	require.NoError(t, store.Rounds().Create(ctx, open))
	require.NoError(t, store.Rounds().Create(ctx, draft))

	rounds, err := store.Rounds().List(ctx, RoundFilter{Statuses: []models.RoundStatus{models.RoundStatusOpen}})
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, open.ID, rounds[0].ID)

	rounds, err = store.Rounds().List(ctx, RoundFilter{RaceID: &draft.RaceID})
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, draft.ID, rounds[0].ID)
}

func TestMemoryEntries_UpsertKeepsIdentity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	roundID, userID := primitive.NewObjectID(), primitive.NewObjectID()

	first := &models.PredictionEntry{RoundID: roundID, UserID: userID, CreatedAt: time.Now()}
	require.NoError(t, store.Entries().Upsert(ctx, first))

	second := &models.PredictionEntry{RoundID: roundID, UserID: userID, Picks: models.PickSet{P1: primitive.NewObjectID()}}
	require.NoError(t, store.Entries().Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	entries, err := store.Entries().FindByRound(ctx, roundID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, second.Picks.P1, entries[0].Picks.P1)
}

func TestMemoryScores_UpdateRequiresExistingRow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	score := &models.PredictionScore{RoundID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Total: 3}
	assert.ErrorIs(t, store.Scores().Update(ctx, score), ErrNotFound)

	require.NoError(t, store.Scores().UpsertMany(ctx, []*models.PredictionScore{score}))
	score.Total = 9
	require.NoError(t, store.Scores().Update(ctx, score))

	stored, err := store.Scores().FindByRoundAndUser(ctx, score.RoundID, score.UserID)
	require.NoError(t, err)
	assert.Equal(t, 9.0, stored.Total)
}

func TestMemoryStore_TransactionRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	round := newTestRound()
	require.NoError(t, store.Rounds().Create(ctx, round))

	boom := errors.New("boom")
	err := store.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := store.Rounds().DeleteByIDs(ctx, []primitive.ObjectID{round.ID}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Rounds().FindByID(ctx, round.ID)
	assert.NoError(t, err)
}

func TestMemoryStore_RollbackKeepsConcurrentWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	inside := make(chan struct{})
	release := make(chan struct{})
	failed := make(chan error)
	go func() {
		failed <- store.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := store.Rounds().Create(ctx, newTestRound()); err != nil {
				return err
			}
			close(inside)
			<-release
			return errors.New("abort")
		})
	}()
	<-inside

	outside := newTestRound()
	created := make(chan error)
	go func() { created <- store.Rounds().Create(ctx, outside) }()

	select {
	case <-created:
		t.Fatal("write ran while a transaction was open")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	assert.Error(t, <-failed)
	require.NoError(t, <-created)

	rounds, err := store.Rounds().List(ctx, RoundFilter{})
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, outside.ID, rounds[0].ID)
}

func TestMemoryStore_NestedTransactionJoinsOuter(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.RunInTransaction(ctx, func(ctx context.Context) error {
		return store.RunInTransaction(ctx, func(ctx context.Context) error {
			return store.Rounds().Create(ctx, newTestRound())
		})
	})
	require.NoError(t, err)

	rounds, err := store.Rounds().List(ctx, RoundFilter{})
	require.NoError(t, err)
	assert.Len(t, rounds, 1)
}

func TestMemorySeasons_OnlyActiveAssignments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seasonID := primitive.NewObjectID()

	active := &models.TeamAssignment{SeasonID: seasonID, UserID: primitive.NewObjectID(), TeamID: primitive.NewObjectID(), Active: true}
	inactive := &models.TeamAssignment{SeasonID: seasonID, UserID: primitive.NewObjectID(), TeamID: primitive.NewObjectID()}
	store.PutAssignment(active)
	store.PutAssignment(inactive)

	assignments, err := store.Seasons().FindAssignments(ctx, seasonID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, active.UserID, assignments[0].UserID)

	_, err = store.Seasons().FindAssignment(ctx, seasonID, inactive.UserID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsTransactionUnsupported(t *testing.T) {
	assert.False(t, IsTransactionUnsupported(nil))
	assert.True(t, IsTransactionUnsupported(errors.New("(IllegalOperation) Transaction numbers are only allowed on a replica set member or mongos")))
	assert.False(t, IsTransactionUnsupported(errors.New("connection refused")))
}
