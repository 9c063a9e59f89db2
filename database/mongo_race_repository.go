package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"race-league-go/models"
)

// MongoRaceRepository reads races written by the results side of the league
type MongoRaceRepository struct {
	collection *mongo.Collection
}

// NewMongoRaceRepository creates a new MongoDB race repository
func NewMongoRaceRepository(db *MongoDB) *MongoRaceRepository {
	return &MongoRaceRepository{collection: db.GetCollection("races")}
}

// FindByID retrieves a race with its results
func (r *MongoRaceRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Race, error) {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	var race models.Race
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&race); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find race: %w", err)
	}
	return &race, nil
}

// FindByIDs retrieves several races at once; missing IDs are skipped
func (r *MongoRaceRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Race, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := WithMediumTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find races: %w", err)
	}
	defer cursor.Close(ctx)

	var races []*models.Race
	if err := cursor.All(ctx, &races); err != nil {
		return nil, fmt.Errorf("failed to decode races: %w", err)
	}
	return races, nil
}

// UpsertRace stores a race document; used by the seed command
func (r *MongoRaceRepository) UpsertRace(ctx context.Context, race *models.Race) error {
	ctx, cancel := WithShortTimeout(ctx)
	defer cancel()

	if race.ID.IsZero() {
		race.ID = primitive.NewObjectID()
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": race.ID}, race, replaceUpsertOpts())
	if err != nil {
		return fmt.Errorf("failed to upsert race: %w", err)
	}
	return nil
}
