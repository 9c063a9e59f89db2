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

// MongoScoreRepository implements ScoreRepository using MongoDB
type MongoScoreRepository struct {
	collection *mongo.Collection
}

// NewMongoScoreRepository creates a new MongoDB prediction score repository
func NewMongoScoreRepository(db *MongoDB) *MongoScoreRepository {
	collection := db.GetCollection("prediction_scores")

	ctx, cancel := WithMediumTimeout(context.Background())
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "round_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "season_id", Value: 1}},
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logging.Warnf("Could not create prediction score indexes: %v", err)
	}

	return &MongoScoreRepository{collection: collection}
}

func scoreFields(score *models.PredictionScore) bson.M {
	return bson.M{
		"season_id":       score.SeasonID,
		"race_id":         score.RaceID,
		"total":           score.Total,
		"breakdown":       score.Breakdown,
		"predicted":       score.Predicted,
		"actual":          score.Actual,
		"generated_from":  score.GeneratedFrom,
		"is_overridden":   score.IsOverridden,
		"override_reason": score.OverrideReason,
		"overridden_by":   score.OverriddenBy,
		"overridden_at":   score.OverriddenAt,
		"updated_at":      score.UpdatedAt,
	}
}

// UpsertMany writes every score row of a recompute in one unordered bulk write
func (r *MongoScoreRepository) UpsertMany(ctx context.Context, scores []*models.PredictionScore) error {
	if len(scores) == 0 {
		return nil
	}
	ctx, cancel := WithLongTimeout(ctx)
	defer cancel()

	operations := make([]mongo.WriteModel, 0, len(scores))
	for _, score := range scores {
		filter := bson.M{"round_id": score.RoundID, "user_id": score.UserID}
		update := bson.M{
			"$set": scoreFields(score),
			"$setOnInsert": bson.M{
				"round_id":   score.RoundID,
				"user_id":    score.UserID,
				"created_at": score.CreatedAt,
			},
		}
		operations = append(operations, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(update).
			SetUpsert(true))
	}

	result, err := r.collection.BulkWrite(ctx, operations, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("bulk score upsert failed: %w", translateWriteError(err))
	}

	logging.Debugf("Bulk score upsert: matched=%d modified=%d upserted=%d",
		result.MatchedCount, result.ModifiedCount, result.UpsertedCount)
	return nil
}

// Update rewrites a single existing score row
func (r *MongoScoreRepository) Update(ctx context.Context, score *models.PredictionScore) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	filter := bson.M{"round_id": score.RoundID, "user_id": score.UserID}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": scoreFields(score)})
	if err != nil {
		return fmt.Errorf("failed to update prediction score: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByRoundAndUser retrieves one user's score for a round
func (r *MongoScoreRepository) FindByRoundAndUser(ctx context.Context, roundID, userID primitive.ObjectID) (*models.PredictionScore, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	var score models.PredictionScore
	err := r.collection.FindOne(ctx, bson.M{"round_id": roundID, "user_id": userID}).Decode(&score)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find prediction score: %w", err)
	}
	return &score, nil
}

// FindByRound retrieves all scores of a round, highest total first
func (r *MongoScoreRepository) FindByRound(ctx context.Context, roundID primitive.ObjectID) ([]*models.PredictionScore, error) {
	return r.find(ctx, bson.M{"round_id": roundID})
}

// FindByUser retrieves all of a user's score rows
func (r *MongoScoreRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.PredictionScore, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *MongoScoreRepository) find(ctx context.Context, filter bson.M) ([]*models.PredictionScore, error) {
	ctx, cancel := WithMediumTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "total", Value: -1}, {Key: "user_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find prediction scores: %w", err)
	}
	defer cursor.Close(ctx)

	var scores []*models.PredictionScore
	if err := cursor.All(ctx, &scores); err != nil {
		return nil, fmt.Errorf("failed to decode prediction scores: %w", err)
	}
	return scores, nil
}

// DeleteByRounds removes all score rows of the given rounds
func (r *MongoScoreRepository) DeleteByRounds(ctx context.Context, roundIDs []primitive.ObjectID) (int64, error) {
	if len(roundIDs) == 0 {
		return 0, nil
	}
	ctx, cancel := WithLongTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"round_id": bson.M{"$in": roundIDs}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete prediction scores: %w", err)
	}
	return result.DeletedCount, nil
}
