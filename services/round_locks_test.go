package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRoundLocks(t *testing.T) {
	locks := newRoundLocks()
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(a)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, locks.size())

	unlockA := locks.lock(a)
	unlockB := locks.lock(b)
	assert.Equal(t, 2, locks.size(), "different rounds do not share a lock")
	unlockA()
	unlockB()
	assert.Equal(t, 0, locks.size())
}

func TestRoundLocks_LockAllOpposingOrders(t *testing.T) {
	locks := newRoundLocks()
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		ids := []primitive.ObjectID{a, b, a}
		if i%2 == 1 {
			ids = []primitive.ObjectID{b, a}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lockAll(ids)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, locks.size())
}

func TestDeletePredictionDataForRace_WaitsForRoundLock(t *testing.T) {
	f := newFixture(t)
	round := f.scoredRound()

	unlock := f.svc.locks.lock(round.ID)
	done := make(chan *DeleteSummary)
	go func() {
		summary, err := f.svc.DeletePredictionDataForRace(f.ctx, f.race.ID.Hex())
		assert.NoError(t, err)
		done <- summary
	}()

	select {
	case <-done:
		t.Fatal("delete ran while the round was locked")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case summary := <-done:
		if assert.NotNil(t, summary) {
			assert.Equal(t, DeleteSummary{Rounds: 1, Entries: 2, Scores: 4}, *summary)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delete did not finish after the round was unlocked")
	}
	assert.Equal(t, 0, f.svc.locks.size())
}
