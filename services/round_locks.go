package services

import (
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// roundLocks hands out one mutex per round so recompute, override and sync
// calls for the same round run one at a time within this process
type roundLocks struct {
	mu    sync.Mutex
	locks map[primitive.ObjectID]*roundLock
}

type roundLock struct {
	mu   sync.Mutex
	refs int
}

func newRoundLocks() *roundLocks {
	return &roundLocks{locks: make(map[primitive.ObjectID]*roundLock)}
}

// lock blocks until the round is free and returns the matching unlock
func (l *roundLocks) lock(roundID primitive.ObjectID) func() {
	l.mu.Lock()
	entry, ok := l.locks[roundID]
	if !ok {
		entry = &roundLock{}
		l.locks[roundID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, roundID)
		}
		l.mu.Unlock()
	}
}

// lockAll takes the locks of several rounds in hex order so two callers never
// wait on each other's rounds, and returns one unlock for all of them
func (l *roundLocks) lockAll(roundIDs []primitive.ObjectID) func() {
	ids := append([]primitive.ObjectID(nil), roundIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })

	unlocks := make([]func(), 0, len(ids))
	for i, id := range ids {
		if i > 0 && id == ids[i-1] {
			continue
		}
		unlocks = append(unlocks, l.lock(id))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

func (l *roundLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
