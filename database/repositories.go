package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/models"
)

// RoundFilter narrows round listings; zero values mean "any"
type RoundFilter struct {
	SeasonID *primitive.ObjectID
	RaceID   *primitive.ObjectID
	Statuses []models.RoundStatus
}

// RoundRepository stores prediction rounds
type RoundRepository interface {
	Create(ctx context.Context, round *models.PredictionRound) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.PredictionRound, error)
	List(ctx context.Context, filter RoundFilter) ([]*models.PredictionRound, error)
	// Save writes the round if its version still matches the stored one and bumps the version
	Save(ctx context.Context, round *models.PredictionRound) error
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

// EntryRepository stores participant picks
type EntryRepository interface {
	Upsert(ctx context.Context, entry *models.PredictionEntry) error
	FindByRoundAndUser(ctx context.Context, roundID, userID primitive.ObjectID) (*models.PredictionEntry, error)
	FindByRound(ctx context.Context, roundID primitive.ObjectID) ([]*models.PredictionEntry, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.PredictionEntry, error)
	DeleteByRounds(ctx context.Context, roundIDs []primitive.ObjectID) (int64, error)
}

// ScoreRepository stores computed and overridden scores
type ScoreRepository interface {
	// UpsertMany writes all rows keyed by (round, user) in a single bulk operation
	UpsertMany(ctx context.Context, scores []*models.PredictionScore) error
	Update(ctx context.Context, score *models.PredictionScore) error
	FindByRoundAndUser(ctx context.Context, roundID, userID primitive.ObjectID) (*models.PredictionScore, error)
	FindByRound(ctx context.Context, roundID primitive.ObjectID) ([]*models.PredictionScore, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.PredictionScore, error)
	DeleteByRounds(ctx context.Context, roundIDs []primitive.ObjectID) (int64, error)
}

// RaceRepository reads races and their results
type RaceRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Race, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Race, error)
}

// SeasonRepository reads season rosters and team assignments
type SeasonRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Season, error)
	FindAssignments(ctx context.Context, seasonID primitive.ObjectID) ([]*models.TeamAssignment, error)
	FindAssignment(ctx context.Context, seasonID, userID primitive.ObjectID) (*models.TeamAssignment, error)
}

// SeasonWriter stores season rosters and assignments; used by seeding
type SeasonWriter interface {
	UpsertSeason(ctx context.Context, season *models.Season) error
	UpsertAssignment(ctx context.Context, assignment *models.TeamAssignment) error
}

// RaceWriter stores races and their results; used by seeding
type RaceWriter interface {
	UpsertRace(ctx context.Context, race *models.Race) error
}

// UserRepository stores login accounts
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// Transactor runs a unit of work atomically where the store supports it
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Compile-time checks that both stores satisfy the repository interfaces
var (
	_ RoundRepository  = (*MongoRoundRepository)(nil)
	_ EntryRepository  = (*MongoEntryRepository)(nil)
	_ ScoreRepository  = (*MongoScoreRepository)(nil)
	_ RaceRepository   = (*MongoRaceRepository)(nil)
	_ RaceWriter       = (*MongoRaceRepository)(nil)
	_ SeasonRepository = (*MongoSeasonRepository)(nil)
	_ SeasonWriter     = (*MongoSeasonRepository)(nil)
	_ UserRepository   = (*MongoUserRepository)(nil)
	_ Transactor       = (*MongoDB)(nil)
	_ Transactor       = (*MemoryStore)(nil)
)
