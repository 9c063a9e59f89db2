package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/models"
	"race-league-go/services"
)

// RoundAdminService defines the administrator operations on prediction rounds
type RoundAdminService interface {
	CreateRound(ctx context.Context, input services.CreateRoundInput, actor string) (*models.PredictionRound, error)
	ListRoundsForAdmin(ctx context.Context, seasonID string) ([]services.AdminRoundSummary, error)
	GetRoundDetailsForAdmin(ctx context.Context, roundID string) (*services.AdminRoundDetails, error)
	TransitionRoundStatus(ctx context.Context, roundID string, to models.RoundStatus, actor, reason string) (*models.PredictionRound, error)
	ScoreRoundFromRaceResults(ctx context.Context, roundID string, opts services.RecomputeOptions) (*services.RecomputeResult, error)
	PublishRound(ctx context.Context, roundID, actor string) (*models.PredictionRound, error)

	// Override ledger
	OverrideUserScore(ctx context.Context, roundID, userID string, input services.OverrideInput, actor string) (*models.PredictionScore, error)
	ClearUserScoreOverride(ctx context.Context, roundID, userID, actor string) (*services.RecomputeResult, error)

	// Race and season hooks
	SyncPredictionsForRace(ctx context.Context, raceID, actor string) (*services.SyncSummary, error)
	DeletePredictionRound(ctx context.Context, roundID string) (*services.DeleteSummary, error)
	DeletePredictionDataForSeason(ctx context.Context, seasonID string) (*services.DeleteSummary, error)
	DeletePredictionDataForRace(ctx context.Context, raceID string) (*services.DeleteSummary, error)
}

// RoundParticipantService defines what a participant can do with rounds
type RoundParticipantService interface {
	ListRoundsForUser(ctx context.Context, userID primitive.ObjectID, seasonID string) ([]services.UserRoundSummary, error)
	GetRoundDetailsForUser(ctx context.Context, roundID string, userID primitive.ObjectID) (*services.UserRoundDetails, error)
	UpsertUserEntry(ctx context.Context, roundID string, userID primitive.ObjectID, input services.PickInput) (*models.PredictionEntry, error)
	GetUserPredictionHistory(ctx context.Context, userID primitive.ObjectID, seasonID string) ([]services.HistoryItem, error)
}

// PredictionService is the complete prediction round surface
type PredictionService interface {
	RoundAdminService
	RoundParticipantService
}

// AuthService defines methods for authentication operations
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	GenerateToken(user *models.User) (string, error)
	GetUserFromToken(ctx context.Context, tokenString string) (*models.User, error)
}
