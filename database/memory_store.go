package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/models"
)

type roundUserKey struct {
	round primitive.ObjectID
	user  primitive.ObjectID
}

// MemoryStore keeps every collection in process memory. It backs the demo
// mode used when MongoDB is unreachable and the service tests.
// Documents are cloned on the way in and out so callers never share state.
// A transaction excludes every other round, entry and score write until it
// finishes, so rolling back to its snapshot cannot discard them.
type MemoryStore struct {
	mu          sync.RWMutex
	txMu        sync.RWMutex // held for writing by a transaction, for reading by other writes
	rounds      map[primitive.ObjectID]*models.PredictionRound
	entries     map[roundUserKey]*models.PredictionEntry
	scores      map[roundUserKey]*models.PredictionScore
	races       map[primitive.ObjectID]*models.Race
	seasons     map[primitive.ObjectID]*models.Season
	assignments map[roundUserKey]*models.TeamAssignment // keyed by (season, user)
	users       map[primitive.ObjectID]*models.User
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rounds:      make(map[primitive.ObjectID]*models.PredictionRound),
		entries:     make(map[roundUserKey]*models.PredictionEntry),
		scores:      make(map[roundUserKey]*models.PredictionScore),
		races:       make(map[primitive.ObjectID]*models.Race),
		seasons:     make(map[primitive.ObjectID]*models.Season),
		assignments: make(map[roundUserKey]*models.TeamAssignment),
		users:       make(map[primitive.ObjectID]*models.User),
	}
}

// Rounds returns the round repository view of the store
func (s *MemoryStore) Rounds() RoundRepository { return memoryRounds{s} }

// Entries returns the entry repository view of the store
func (s *MemoryStore) Entries() EntryRepository { return memoryEntries{s} }

// Scores returns the score repository view of the store
func (s *MemoryStore) Scores() ScoreRepository { return memoryScores{s} }

// Races returns the race repository view of the store
func (s *MemoryStore) Races() RaceRepository { return memoryRaces{s} }

// Seasons returns the season repository view of the store
func (s *MemoryStore) Seasons() SeasonRepository { return memorySeasons{s} }

// SeasonWriter returns the seeding view of the season collections
func (s *MemoryStore) SeasonWriter() SeasonWriter { return memorySeasons{s} }

// RaceWriter returns the seeding view of the race collection
func (s *MemoryStore) RaceWriter() RaceWriter { return memoryRaces{s} }

// Users returns the user repository view of the store
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

type memoryTxKey struct{}

// beginWrite admits a prediction write; writes issued inside a transaction pass straight through
func (s *MemoryStore) beginWrite(ctx context.Context) func() {
	if ctx != nil && ctx.Value(memoryTxKey{}) == s {
		return func() {}
	}
	s.txMu.RLock()
	return s.txMu.RUnlock
}

// RunInTransaction snapshots the prediction collections and restores them if fn fails.
// Transactions run one at a time and block other prediction writes meanwhile.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) == s {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	rounds := make(map[primitive.ObjectID]*models.PredictionRound, len(s.rounds))
	for k, v := range s.rounds {
		rounds[k] = v.Clone()
	}
	entries := make(map[roundUserKey]*models.PredictionEntry, len(s.entries))
	for k, v := range s.entries {
		entries[k] = v.Clone()
	}
	scores := make(map[roundUserKey]*models.PredictionScore, len(s.scores))
	for k, v := range s.scores {
		scores[k] = v.Clone()
	}
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, memoryTxKey{}, s)); err != nil {
		s.mu.Lock()
		s.rounds, s.entries, s.scores = rounds, entries, scores
		s.mu.Unlock()
		return err
	}
	return nil
}

// PutSeason stores a season roster
func (s *MemoryStore) PutSeason(season *models.Season) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if season.ID.IsZero() {
		season.ID = primitive.NewObjectID()
	}
	c := *season
	c.Participants = append([]primitive.ObjectID{}, season.Participants...)
	c.Teams = append([]primitive.ObjectID{}, season.Teams...)
	s.seasons[season.ID] = &c
}

// PutRace stores a race and its results, replacing any previous version
func (s *MemoryStore) PutRace(race *models.Race) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if race.ID.IsZero() {
		race.ID = primitive.NewObjectID()
	}
	c := *race
	c.Results = append([]models.RaceResult{}, race.Results...)
	s.races[race.ID] = &c
}

// PutAssignment stores the active team of a user for a season
func (s *MemoryStore) PutAssignment(assignment *models.TeamAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if assignment.ID.IsZero() {
		assignment.ID = primitive.NewObjectID()
	}
	c := *assignment
	s.assignments[roundUserKey{assignment.SeasonID, assignment.UserID}] = &c
}

// PutUser stores a user account
func (s *MemoryStore) PutUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	c := *user
	c.Email = models.NormalizeEmail(user.Email)
	s.users[user.ID] = &c
}

type memoryRounds struct{ s *MemoryStore }

func (r memoryRounds) Create(ctx context.Context, round *models.PredictionRound) error {
	defer r.s.beginWrite(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.rounds {
		if existing.SeasonID == round.SeasonID && existing.RaceID == round.RaceID {
			return ErrDuplicate
		}
	}
	if round.ID.IsZero() {
		round.ID = primitive.NewObjectID()
	}
	round.Version = 1
	r.s.rounds[round.ID] = round.Clone()
	return nil
}

func (r memoryRounds) FindByID(_ context.Context, id primitive.ObjectID) (*models.PredictionRound, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	round, ok := r.s.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return round.Clone(), nil
}

func (r memoryRounds) List(_ context.Context, filter RoundFilter) ([]*models.PredictionRound, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var rounds []*models.PredictionRound
	for _, round := range r.s.rounds {
		if filter.SeasonID != nil && round.SeasonID != *filter.SeasonID {
			continue
		}
		if filter.RaceID != nil && round.RaceID != *filter.RaceID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, round.Status) {
			continue
		}
		rounds = append(rounds, round.Clone())
	}
	sort.Slice(rounds, func(i, j int) bool {
		if !rounds[i].CreatedAt.Equal(rounds[j].CreatedAt) {
			return rounds[i].CreatedAt.After(rounds[j].CreatedAt)
		}
		return rounds[i].ID.Hex() > rounds[j].ID.Hex()
	})
	return rounds, nil
}

func (r memoryRounds) Save(ctx context.Context, round *models.PredictionRound) error {
	defer r.s.beginWrite(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.rounds[round.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.Version != round.Version {
		return ErrVersionConflict
	}
	round.Version++
	round.UpdatedAt = time.Now()
	r.s.rounds[round.ID] = round.Clone()
	return nil
}

func (r memoryRounds) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	defer r.s.beginWrite(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := r.s.rounds[id]; ok {
			delete(r.s.rounds, id)
			deleted++
		}
	}
	return deleted, nil
}

func containsStatus(statuses []models.RoundStatus, status models.RoundStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type memoryEntries struct{ s *MemoryStore }

func (r memoryEntries) Upsert(ctx context.Context, entry *models.PredictionEntry) error {
	defer r.s.beginWrite(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := roundUserKey{entry.RoundID, entry.UserID}
	if existing, ok := r.s.entries[key]; ok {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	} else if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	r.s.entries[key] = entry.Clone()
	return nil
}

func (r memoryEntries) FindByRoundAndUser(_ context.Context, roundID, userID primitive.ObjectID) (*models.PredictionEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entry, ok := r.s.entries[roundUserKey{roundID, userID}]
	if !ok {
		return nil, ErrNotFound
	}
	return entry.Clone(), nil
}

func (r memoryEntries) FindByRound(_ context.Context, roundID primitive.ObjectID) ([]*models.PredictionEntry, error) {
	return r.filter(func(e *models.PredictionEntry) bool { return e.RoundID == roundID }), nil
}

func (r memoryEntries) FindByUser(_ context.Context, userID primitive.ObjectID) ([]*models.PredictionEntry, error) {
	return r.filter(func(e *models.PredictionEntry) bool { return e.UserID == userID }), nil
}

func (r memoryEntries) filter(match func(*models.PredictionEntry) bool) []*models.PredictionEntry {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var entries []*models.PredictionEntry
	for _, entry := range r.s.entries {
		if match(entry) {
			entries = append(entries, entry.Clone())
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
	})
	return entries
}

func (r memoryEntries) DeleteByRounds(ctx context.Context, roundIDs []primitive.ObjectID) (int64, error) {
	defer r.s.beginWrite(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var deleted int64
	for key := range r.s.entries {
		if models.ContainsID(roundIDs, key.round) {
			delete(r.s.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

type memoryScores struct{ s *MemoryStore }

func (r memoryScores) UpsertMany(ctx context.Context, scores []*models.PredictionScore) error {
	defer r.s.beginWrite(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, score := range scores {
		key := roundUserKey{score.RoundID, score.UserID}
		c := score.Clone()
		if existing, ok := r.s.scores[key]; ok {
			c.ID = existing.ID
			c.CreatedAt = existing.CreatedAt
		} else if c.ID.IsZero() {
			c.ID = primitive.NewObjectID()
		}
		r.s.scores[key] = c
	}
	return nil
}

func (r memoryScores) Update(ctx context.Context, score *models.PredictionScore) error {
	defer r.s.beginWrite(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := roundUserKey{score.RoundID, score.UserID}
	existing, ok := r.s.scores[key]
	if !ok {
		return ErrNotFound
	}
	c := score.Clone()
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	r.s.scores[key] = c
	return nil
}

func (r memoryScores) FindByRoundAndUser(_ context.Context, roundID, userID primitive.ObjectID) (*models.PredictionScore, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	score, ok := r.s.scores[roundUserKey{roundID, userID}]
	if !ok {
		return nil, ErrNotFound
	}
	return score.Clone(), nil
}

func (r memoryScores) FindByRound(_ context.Context, roundID primitive.ObjectID) ([]*models.PredictionScore, error) {
	return r.filter(func(s *models.PredictionScore) bool { return s.RoundID == roundID }), nil
}

func (r memoryScores) FindByUser(_ context.Context, userID primitive.ObjectID) ([]*models.PredictionScore, error) {
	return r.filter(func(s *models.PredictionScore) bool { return s.UserID == userID }), nil
}

func (r memoryScores) filter(match func(*models.PredictionScore) bool) []*models.PredictionScore {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var scores []*models.PredictionScore
	for _, score := range r.s.scores {
		if match(score) {
			scores = append(scores, score.Clone())
		}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Total != scores[j].Total {
			return scores[i].Total > scores[j].Total
		}
		return scores[i].UserID.Hex() < scores[j].UserID.Hex()
	})
	return scores
}

func (r memoryScores) DeleteByRounds(ctx context.Context, roundIDs []primitive.ObjectID) (int64, error) {
	defer r.s.beginWrite(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var deleted int64
	for key := range r.s.scores {
		if models.ContainsID(roundIDs, key.round) {
			delete(r.s.scores, key)
			deleted++
		}
	}
	return deleted, nil
}

type memoryRaces struct{ s *MemoryStore }

func (r memoryRaces) UpsertRace(_ context.Context, race *models.Race) error {
	r.s.PutRace(race)
	return nil
}

func (r memoryRaces) FindByID(_ context.Context, id primitive.ObjectID) (*models.Race, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	race, ok := r.s.races[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *race
	c.Results = append([]models.RaceResult{}, race.Results...)
	return &c, nil
}

func (r memoryRaces) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Race, error) {
	var races []*models.Race
	for _, id := range ids {
		race, err := r.FindByID(ctx, id)
		if err != nil {
			continue
		}
		races = append(races, race)
	}
	return races, nil
}

type memorySeasons struct{ s *MemoryStore }

func (r memorySeasons) UpsertSeason(_ context.Context, season *models.Season) error {
	r.s.PutSeason(season)
	return nil
}

func (r memorySeasons) UpsertAssignment(_ context.Context, assignment *models.TeamAssignment) error {
	r.s.PutAssignment(assignment)
	return nil
}

func (r memorySeasons) FindByID(_ context.Context, id primitive.ObjectID) (*models.Season, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	season, ok := r.s.seasons[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *season
	c.Participants = append([]primitive.ObjectID{}, season.Participants...)
	c.Teams = append([]primitive.ObjectID{}, season.Teams...)
	return &c, nil
}

func (r memorySeasons) FindAssignments(_ context.Context, seasonID primitive.ObjectID) ([]*models.TeamAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var assignments []*models.TeamAssignment
	for key, assignment := range r.s.assignments {
		if key.round == seasonID && assignment.Active {
			c := *assignment
			assignments = append(assignments, &c)
		}
	}
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].UserID.Hex() < assignments[j].UserID.Hex()
	})
	return assignments, nil
}

func (r memorySeasons) FindAssignment(_ context.Context, seasonID, userID primitive.ObjectID) (*models.TeamAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	assignment, ok := r.s.assignments[roundUserKey{seasonID, userID}]
	if !ok || !assignment.Active {
		return nil, ErrNotFound
	}
	c := *assignment
	return &c, nil
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	normalized := models.NormalizeEmail(email)
	for _, user := range r.s.users {
		if user.Email == normalized {
			c := *user
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryUsers) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *user
	return &c, nil
}

func (r memoryUsers) CreateUser(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = models.NormalizeEmail(user.Email)
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	c := *user
	r.s.users[user.ID] = &c
	return nil
}
