package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"race-league-go/logging"
	"race-league-go/models"
)

// MongoRoundRepository implements RoundRepository for MongoDB
type MongoRoundRepository struct {
	collection *mongo.Collection
}

// NewMongoRoundRepository creates the repository and its indexes
func NewMongoRoundRepository(db *MongoDB) *MongoRoundRepository {
	collection := db.GetCollection("prediction_rounds")

	ctx, cancel := WithMediumTimeout(context.Background())
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			// One round per race of a season
			Keys:    bson.D{{Key: "season_id", Value: 1}, {Key: "race_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "race_id", Value: 1}, {Key: "status", Value: 1}},
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logging.Warnf("Could not create prediction round indexes: %v", err)
	}

	return &MongoRoundRepository{collection: collection}
}

// Create inserts a new round, failing with ErrDuplicate if the season/race pair is taken
func (r *MongoRoundRepository) Create(ctx context.Context, round *models.PredictionRound) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	if round.ID.IsZero() {
		round.ID = primitive.NewObjectID()
	}
	round.Version = 1

	if _, err := r.collection.InsertOne(ctx, round); err != nil {
		return fmt.Errorf("failed to create prediction round: %w", translateWriteError(err))
	}
	return nil
}

// FindByID retrieves a round by its ID
func (r *MongoRoundRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PredictionRound, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	var round models.PredictionRound
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&round)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find prediction round: %w", err)
	}
	return &round, nil
}

// List returns rounds matching the filter, most recently created first
func (r *MongoRoundRepository) List(ctx context.Context, filter RoundFilter) ([]*models.PredictionRound, error) {
	ctx, cancel := WithMediumTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if filter.SeasonID != nil {
		query["season_id"] = *filter.SeasonID
	}
	if filter.RaceID != nil {
		query["race_id"] = *filter.RaceID
	}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list prediction rounds: %w", err)
	}
	defer cursor.Close(ctx)

	var rounds []*models.PredictionRound
	if err := cursor.All(ctx, &rounds); err != nil {
		return nil, fmt.Errorf("failed to decode prediction rounds: %w", err)
	}
	return rounds, nil
}

// Save replaces the stored round when the version matches and increments it
func (r *MongoRoundRepository) Save(ctx context.Context, round *models.PredictionRound) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	expected := round.Version
	round.Version = expected + 1
	round.UpdatedAt = time.Now().UTC()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": round.ID, "version": expected}, round)
	if err != nil {
		round.Version = expected
		return fmt.Errorf("failed to save prediction round: %w", translateWriteError(err))
	}
	if result.MatchedCount == 0 {
		round.Version = expected
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": round.ID})
		if countErr == nil && count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// DeleteByIDs removes the given rounds
func (r *MongoRoundRepository) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := WithLongTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete prediction rounds: %w", err)
	}
	return result.DeletedCount, nil
}
