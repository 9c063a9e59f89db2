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

// MongoEntryRepository implements EntryRepository for MongoDB
type MongoEntryRepository struct {
	collection *mongo.Collection
}

// NewMongoEntryRepository creates a new MongoDB prediction entry repository
func NewMongoEntryRepository(db *MongoDB) *MongoEntryRepository {
	collection := db.GetCollection("prediction_entries")

	ctx, cancel := WithMediumTimeout(context.Background())
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "round_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logging.Warnf("Could not create prediction entry indexes: %v", err)
	}

	return &MongoEntryRepository{collection: collection}
}

// Upsert creates or replaces the picks of a user for a round
func (r *MongoEntryRepository) Upsert(ctx context.Context, entry *models.PredictionEntry) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"round_id": entry.RoundID,
		"user_id":  entry.UserID,
	}
	update := bson.M{
		"$set": bson.M{
			"season_id":    entry.SeasonID,
			"race_id":      entry.RaceID,
			"picks":        entry.Picks,
			"tie_breaker":  entry.TieBreaker,
			"submitted_at": entry.SubmittedAt,
			"updated_at":   entry.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"round_id":   entry.RoundID,
			"user_id":    entry.UserID,
			"created_at": entry.CreatedAt,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var stored models.PredictionEntry
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return fmt.Errorf("failed to upsert prediction entry: %w", translateWriteError(err))
	}
	entry.ID = stored.ID
	entry.CreatedAt = stored.CreatedAt
	return nil
}

// FindByRoundAndUser retrieves one user's entry for a round
func (r *MongoEntryRepository) FindByRoundAndUser(ctx context.Context, roundID, userID primitive.ObjectID) (*models.PredictionEntry, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	var entry models.PredictionEntry
	err := r.collection.FindOne(ctx, bson.M{"round_id": roundID, "user_id": userID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find prediction entry: %w", err)
	}
	return &entry, nil
}

// FindByRound retrieves all entries of a round
func (r *MongoEntryRepository) FindByRound(ctx context.Context, roundID primitive.ObjectID) ([]*models.PredictionEntry, error) {
	return r.find(ctx, bson.M{"round_id": roundID})
}

// FindByUser retrieves every entry a user submitted
func (r *MongoEntryRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.PredictionEntry, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *MongoEntryRepository) find(ctx context.Context, filter bson.M) ([]*models.PredictionEntry, error) {
	ctx, cancel := WithMediumTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find prediction entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.PredictionEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode prediction entries: %w", err)
	}
	return entries, nil
}

// DeleteByRounds removes all entries belonging to the given rounds
func (r *MongoEntryRepository) DeleteByRounds(ctx context.Context, roundIDs []primitive.ObjectID) (int64, error) {
	if len(roundIDs) == 0 {
		return 0, nil
	}
	ctx, cancel := WithLongTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"round_id": bson.M{"$in": roundIDs}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete prediction entries: %w", err)
	}
	return result.DeletedCount, nil
}
