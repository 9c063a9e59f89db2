package main

import (
	"context"
	"flag"

	"race-league-go/config"
	"race-league-go/database"
	"race-league-go/logging"
	"race-league-go/services"
)

func main() {
	withLeague := flag.Bool("league", true, "also seed the demo season, team assignments and race")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Configure(cfg.ToLoggingConfig())
	logging.Info("=== Seed Race League ===")

	db, err := database.NewMongoConnection(cfg.ToDatabaseConfig())
	if err != nil {
		logging.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	users := database.NewMongoUserRepository(db)
	seeder := services.NewLeagueSeeder(users, database.NewMongoSeasonRepository(db), database.NewMongoRaceRepository(db))

	ctx := context.Background()
	if err := seeder.SeedUsers(ctx, cfg.App.AdminEmail, cfg.App.AdminPassword); err != nil {
		logging.Fatalf("Failed to seed users: %v", err)
	}
	if *withLeague {
		if err := seeder.SeedLeague(ctx); err != nil {
			logging.Fatalf("Failed to seed league: %v", err)
		}
	}
	logging.Info("Seeding complete")
}
