package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/database"
	"race-league-go/logging"
	"race-league-go/models"
)

// Fixed identifiers of the demo league so seeding twice updates in place
var (
	DemoSeasonID = models.MustID("64f000000000000000000001")
	DemoRaceID   = models.MustID("64f000000000000000000002")
)

// LeagueSeeder seeds an admin account and a small demo league
type LeagueSeeder struct {
	userRepo database.UserRepository
	seasons  database.SeasonWriter
	races    database.RaceWriter
}

// NewLeagueSeeder creates a new league seeder
func NewLeagueSeeder(userRepo database.UserRepository, seasons database.SeasonWriter, races database.RaceWriter) *LeagueSeeder {
	return &LeagueSeeder{
		userRepo: userRepo,
		seasons:  seasons,
		races:    races,
	}
}

type seedDriver struct {
	userID string
	teamID string
	name   string
	email  string
	points float64
}

var demoDrivers = []seedDriver{
	{"64f000000000000000000101", "64f000000000000000000201", "ALICE", "alice@example.com", 25},
	{"64f000000000000000000102", "64f000000000000000000202", "BRUNO", "bruno@example.com", 18},
	{"64f000000000000000000103", "64f000000000000000000203", "CARLA", "carla@example.com", 15},
	{"64f000000000000000000104", "64f000000000000000000204", "DAVID", "david@example.com", 12},
	{"64f000000000000000000105", "64f000000000000000000205", "EMMA", "emma@example.com", 4},
}

// SeedUsers creates the admin and the demo participants if they do not exist yet
func (s *LeagueSeeder) SeedUsers(ctx context.Context, adminEmail, password string) error {
	var existingCount, createdCount int

	admin := &models.User{Name: "ADMIN", Email: adminEmail, Role: models.RoleAdmin}
	users := []*models.User{admin}
	for _, driver := range demoDrivers {
		users = append(users, &models.User{
			ID:    models.MustID(driver.userID),
			Name:  driver.name,
			Email: driver.email,
			Role:  models.RoleParticipant,
		})
	}

	for _, user := range users {
		existing, err := s.userRepo.GetUserByEmail(ctx, user.Email)
		if err == nil && existing != nil {
			existingCount++
			continue
		}
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("failed to look up %s: %w", user.Email, err)
		}

		if err := user.HashPassword(password); err != nil {
			logging.Errorf("Failed to hash password for %s: %v", user.Email, err)
			continue
		}
		if err := s.userRepo.CreateUser(ctx, user); err != nil {
			logging.Errorf("Failed to create user %s: %v", user.Email, err)
			continue
		}

		logging.Infof("Created user %s (%s) with ID %s", user.Name, user.Email, user.ID.Hex())
		createdCount++
	}

	logging.Infof("Completed Seeding Users - %d existing, %d created", existingCount, createdCount)
	return nil
}

// SeedLeague writes the demo season, team assignments and one race with results
func (s *LeagueSeeder) SeedLeague(ctx context.Context) error {
	now := time.Now().UTC()

	season := &models.Season{
		ID:        DemoSeasonID,
		Name:      "Demo Season",
		Year:      now.Year(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	results := make([]models.RaceResult, 0, len(demoDrivers))
	for _, driver := range demoDrivers {
		userID := models.MustID(driver.userID)
		season.Participants = append(season.Participants, userID)
		season.Teams = append(season.Teams, models.MustID(driver.teamID))
		results = append(results, models.RaceResult{UserID: userID, PointsEarned: driver.points})
	}
	if err := s.seasons.UpsertSeason(ctx, season); err != nil {
		return fmt.Errorf("failed to seed season: %w", err)
	}

	for _, driver := range demoDrivers {
		assignment := &models.TeamAssignment{
			UserID:     models.MustID(driver.userID),
			SeasonID:   DemoSeasonID,
			TeamID:     models.MustID(driver.teamID),
			Active:     true,
			AssignedAt: now,
		}
		if err := s.seasons.UpsertAssignment(ctx, assignment); err != nil {
			return fmt.Errorf("failed to seed team assignment: %w", err)
		}
	}

	race := &models.Race{
		ID:        DemoRaceID,
		SeasonID:  DemoSeasonID,
		Name:      "Opening Race",
		Track:     "Demo Circuit",
		Date:      now.Truncate(24 * time.Hour),
		Results:   results,
		UpdatedAt: now,
	}
	if err := s.races.UpsertRace(ctx, race); err != nil {
		return fmt.Errorf("failed to seed race: %w", err)
	}

	logging.Infof("Seeded demo season %s with %d participants and race %s",
		DemoSeasonID.Hex(), len(demoDrivers), DemoRaceID.Hex())
	return nil
}

// DemoTeamIDs returns the team IDs of the demo season in seeding order
func DemoTeamIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(demoDrivers))
	for _, driver := range demoDrivers {
		ids = append(ids, models.MustID(driver.teamID))
	}
	return ids
}
