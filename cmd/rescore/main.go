package main

import (
	"context"
	"flag"
	"os"

	"race-league-go/config"
	"race-league-go/database"
	"race-league-go/logging"
	"race-league-go/models"
	"race-league-go/services"
)

// Runs the race result sync for one race after its results were edited
func main() {
	raceID := flag.String("race", "", "race ID whose prediction rounds should be resynced")
	actor := flag.String("actor", models.ActorSystem, "name recorded in the round transition log")
	flag.Parse()

	if *raceID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Configure(cfg.ToLoggingConfig())

	db, err := database.NewMongoConnection(cfg.ToDatabaseConfig())
	if err != nil {
		logging.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	svc := services.NewPredictionService(services.PredictionRepositories{
		Rounds:     database.NewMongoRoundRepository(db),
		Entries:    database.NewMongoEntryRepository(db),
		Scores:     database.NewMongoScoreRepository(db),
		Races:      database.NewMongoRaceRepository(db),
		Seasons:    database.NewMongoSeasonRepository(db),
		Transactor: db,
	}, cfg.ToScoringConfig(), nil)

	summary, err := svc.SyncPredictionsForRace(context.Background(), *raceID, *actor)
	if err != nil {
		logging.Errorf("Race sync failed: %v", err)
		os.Exit(1)
	}
	logging.Infof("Race %s: %d rounds, %d rescored, %d flagged for review, %d unchanged",
		summary.RaceID, summary.RoundsTotal, summary.Rescored, summary.ReviewFlagged, summary.Unchanged)
}
