package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"race-league-go/logging"
	"race-league-go/models"
)

// MongoSeasonRepository reads seasons and the per-season team assignments
type MongoSeasonRepository struct {
	seasons     *mongo.Collection
	assignments *mongo.Collection
}

// NewMongoSeasonRepository creates a new MongoDB season repository
func NewMongoSeasonRepository(db *MongoDB) *MongoSeasonRepository {
	assignments := db.GetCollection("team_assignments")

	ctx, cancel := WithMediumTimeout(context.Background())
	defer cancel()

	// One assignment per user and season
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "season_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := assignments.Indexes().CreateOne(ctx, index); err != nil {
		logging.Warnf("Could not create team assignment index: %v", err)
	}

	return &MongoSeasonRepository{
		seasons:     db.GetCollection("seasons"),
		assignments: assignments,
	}
}

func upsertOpts() *options.UpdateOptions {
	return options.Update().SetUpsert(true)
}

func replaceUpsertOpts() *options.ReplaceOptions {
	return options.Replace().SetUpsert(true)
}

// FindByID retrieves a season roster
func (r *MongoSeasonRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Season, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	var season models.Season
	if err := r.seasons.FindOne(ctx, bson.M{"_id": id}).Decode(&season); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find season: %w", err)
	}
	return &season, nil
}

// FindAssignments retrieves the active team assignments of a season
func (r *MongoSeasonRepository) FindAssignments(ctx context.Context, seasonID primitive.ObjectID) ([]*models.TeamAssignment, error) {
	ctx, cancel := WithMediumTimeout(ctx)
	defer cancel()

	cursor, err := r.assignments.Find(ctx, bson.M{"season_id": seasonID, "active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to find team assignments: %w", err)
	}
	defer cursor.Close(ctx)

	var assignments []*models.TeamAssignment
	if err := cursor.All(ctx, &assignments); err != nil {
		return nil, fmt.Errorf("failed to decode team assignments: %w", err)
	}
	return assignments, nil
}

// FindAssignment retrieves a user's active team for a season
func (r *MongoSeasonRepository) FindAssignment(ctx context.Context, seasonID, userID primitive.ObjectID) (*models.TeamAssignment, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	var assignment models.TeamAssignment
	filter := bson.M{"season_id": seasonID, "user_id": userID, "active": true}
	if err := r.assignments.FindOne(ctx, filter).Decode(&assignment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find team assignment: %w", err)
	}
	return &assignment, nil
}

// UpsertSeason stores a season roster; used by the seed command
func (r *MongoSeasonRepository) UpsertSeason(ctx context.Context, season *models.Season) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	if season.ID.IsZero() {
		season.ID = primitive.NewObjectID()
	}
	if _, err := r.seasons.ReplaceOne(ctx, bson.M{"_id": season.ID}, season, replaceUpsertOpts()); err != nil {
		return fmt.Errorf("failed to upsert season: %w", err)
	}
	return nil
}

// UpsertAssignment stores the active team of a user for a season
func (r *MongoSeasonRepository) UpsertAssignment(ctx context.Context, assignment *models.TeamAssignment) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	filter := bson.M{"season_id": assignment.SeasonID, "user_id": assignment.UserID}
	update := bson.M{"$set": bson.M{
		"team_id":     assignment.TeamID,
		"active":      assignment.Active,
		"assigned_at": assignment.AssignedAt,
	}}
	if _, err := r.assignments.UpdateOne(ctx, filter, update, upsertOpts()); err != nil {
		return fmt.Errorf("failed to upsert team assignment: %w", err)
	}
	return nil
}
