package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"race-league-go/config"
	"race-league-go/database"
	"race-league-go/handlers"
	"race-league-go/logging"
	"race-league-go/middleware"
	"race-league-go/services"
)

// backend is the storage the server runs on, MongoDB or the in-memory demo store
type backend struct {
	repos       services.PredictionRepositories
	users       database.UserRepository
	seeder      *services.LeagueSeeder
	healthCheck func() error
	close       func()
}

func mongoBackend(db *database.MongoDB) backend {
	seasons := database.NewMongoSeasonRepository(db)
	races := database.NewMongoRaceRepository(db)
	users := database.NewMongoUserRepository(db)
	return backend{
		repos: services.PredictionRepositories{
			Rounds:     database.NewMongoRoundRepository(db),
			Entries:    database.NewMongoEntryRepository(db),
			Scores:     database.NewMongoScoreRepository(db),
			Races:      races,
			Seasons:    seasons,
			Transactor: db,
		},
		users:  users,
		seeder: services.NewLeagueSeeder(users, seasons, races),
		healthCheck: func() error {
			return db.TestConnection(context.Background())
		},
		close: func() {
			if err := db.Close(); err != nil {
				logging.Errorf("Failed to close database: %v", err)
			}
		},
	}
}

func memoryBackend() backend {
	store := database.NewMemoryStore()
	return backend{
		repos: services.PredictionRepositories{
			Rounds:     store.Rounds(),
			Entries:    store.Entries(),
			Scores:     store.Scores(),
			Races:      store.Races(),
			Seasons:    store.Seasons(),
			Transactor: store,
		},
		users:  store.Users(),
		seeder: services.NewLeagueSeeder(store.Users(), store.SeasonWriter(), store.RaceWriter()),
		close:  func() {},
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Configure(cfg.ToLoggingConfig())
	cfg.LogConfiguration()

	var store backend
	db, err := database.NewMongoConnection(cfg.ToDatabaseConfig())
	if err != nil {
		logging.Warnf("Database connection failed: %v", err)
		logging.Warn("Continuing with in-memory demo store; data will not survive a restart")
		store = memoryBackend()
		cfg.App.SeedDemoData = true
	} else {
		store = mongoBackend(db)
	}
	defer store.close()

	ctx := context.Background()
	if cfg.App.SeedDemoData {
		if err := store.seeder.SeedUsers(ctx, cfg.App.AdminEmail, cfg.App.AdminPassword); err != nil {
			logging.Errorf("Failed to seed users: %v", err)
		}
		if err := store.seeder.SeedLeague(ctx); err != nil {
			logging.Errorf("Failed to seed demo league: %v", err)
		}
	}

	var registerer prometheus.Registerer
	var metricsHandler http.Handler
	if cfg.App.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registerer = registry
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	predictionService := services.NewPredictionService(store.repos, cfg.ToScoringConfig(), services.NewMetrics(registerer))
	authService := services.NewAuthService(store.users, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	router := handlers.Router{
		Auth:        handlers.NewAuthHandler(authService, cfg.Server.BehindProxy),
		Admin:       handlers.NewAdminRoundHandler(predictionService),
		Rounds:      handlers.NewRoundHandler(predictionService),
		AuthMW:      middleware.NewAuthMiddleware(authService),
		Metrics:     metricsHandler,
		HealthCheck: store.healthCheck,
	}.Build()
	router.Use(
		middleware.RequestID,
		middleware.RequestLogger(logging.WithPrefix("HTTP")),
		middleware.SecurityHeaders(cfg.Server.BehindProxy),
	)

	server := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logging.Infof("Server starting on %s", server.Addr)
		var err error
		if cfg.Server.UseTLS && !cfg.Server.BehindProxy {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logging.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("Graceful shutdown failed: %v", err)
	}
}
