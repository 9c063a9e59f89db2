package main

import (
	"context"
	"flag"

	"go.mongodb.org/mongo-driver/bson"

	"race-league-go/config"
	"race-league-go/database"
	"race-league-go/logging"
)

var predictionCollections = []string{
	"prediction_rounds",
	"prediction_entries",
	"prediction_scores",
	"team_assignments",
	"users",
}

// Creates the prediction indexes and lists what each collection ends up with.
// A stale index, e.g. one left by an older schema, can be dropped with -drop.
func main() {
	collection := flag.String("collection", "", "collection to drop an index from")
	drop := flag.String("drop", "", "name of the index to drop")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Configure(cfg.ToLoggingConfig())
	logging.Info("=== Prediction Indexes ===")

	db, err := database.NewMongoConnection(cfg.ToDatabaseConfig())
	if err != nil {
		logging.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	// Repository constructors create their indexes
	database.NewMongoRoundRepository(db)
	database.NewMongoEntryRepository(db)
	database.NewMongoScoreRepository(db)
	database.NewMongoSeasonRepository(db)
	database.NewMongoUserRepository(db)

	ctx, cancel := database.WithLongTimeout(context.Background())
	defer cancel()

	if *drop != "" {
		if *collection == "" {
			logging.Fatalf("-drop needs -collection")
		}
		if _, err := db.GetCollection(*collection).Indexes().DropOne(ctx, *drop); err != nil {
			logging.Warnf("Could not drop index %s on %s: %v", *drop, *collection, err)
		} else {
			logging.Infof("Dropped index %s on %s", *drop, *collection)
		}
	}

	for _, name := range predictionCollections {
		cursor, err := db.GetCollection(name).Indexes().List(ctx)
		if err != nil {
			logging.Errorf("Failed to list indexes of %s: %v", name, err)
			continue
		}
		var indexes []bson.M
		if err := cursor.All(ctx, &indexes); err != nil {
			logging.Errorf("Failed to read indexes of %s: %v", name, err)
			continue
		}
		for _, index := range indexes {
			logging.Infof("%s: %v unique=%v", name, index["name"], index["unique"] == true)
		}
	}
}
