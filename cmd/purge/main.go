package main

import (
	"context"
	"flag"
	"os"

	"race-league-go/config"
	"race-league-go/database"
	"race-league-go/logging"
	"race-league-go/services"
)

// Deletes the prediction rounds, entries and scores of a season or a race,
// for use after the season or race itself was removed
func main() {
	seasonID := flag.String("season", "", "delete all prediction data of this season")
	raceID := flag.String("race", "", "delete all prediction data of this race")
	confirm := flag.Bool("yes", false, "confirm the deletion")
	flag.Parse()

	if (*seasonID == "") == (*raceID == "") {
		logging.Error("Pass exactly one of -season or -race")
		flag.Usage()
		os.Exit(2)
	}
	if !*confirm {
		logging.Warn("This permanently deletes prediction data; rerun with -yes to continue")
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

	ctx := context.Background()
	var summary *services.DeleteSummary
	if *seasonID != "" {
		summary, err = svc.DeletePredictionDataForSeason(ctx, *seasonID)
	} else {
		summary, err = svc.DeletePredictionDataForRace(ctx, *raceID)
	}
	if err != nil {
		logging.Errorf("Purge failed: %v", err)
		os.Exit(1)
	}
	logging.Infof("Deleted %d rounds, %d entries, %d scores", summary.Rounds, summary.Entries, summary.Scores)
}
