package services

import (
	"context"
	"errors"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/database"
	"race-league-go/models"
)

// UpsertUserEntry stores a participant's picks for an open round, replacing
// any earlier submission
func (s *PredictionService) UpsertUserEntry(ctx context.Context, roundID string, userID primitive.ObjectID, input PickInput) (*models.PredictionEntry, error) {
	id, err := parseField("round_id", roundID)
	if err != nil {
		return nil, err
	}
	round, err := s.loadRound(ctx, id)
	if err != nil {
		return nil, err
	}
	if round.Status != models.RoundStatusOpen {
		return nil, NewConflictError("round is %s; picks can only be submitted while it is open", round.Status)
	}

	season, err := s.seasons.FindByID(ctx, round.SeasonID)
	if err != nil {
		return nil, translateRepoError("load season", err, "season not found")
	}
	if !season.HasParticipant(userID) {
		return nil, NewValidationError("user_id", "user is not a participant of this season")
	}
	if _, err := s.seasons.FindAssignment(ctx, round.SeasonID, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, NewValidationError("user_id", "choose a team for this season before submitting picks")
		}
		return nil, WrapInternal("load team assignment", err)
	}

	picks, err := ValidatePicks(input, season)
	if err != nil {
		return nil, err
	}
	if input.TieBreaker != nil && (math.IsNaN(*input.TieBreaker) || math.IsInf(*input.TieBreaker, 0)) {
		return nil, NewValidationError("tie_breaker", "must be a finite number")
	}

	now := s.now()
	entry := &models.PredictionEntry{
		RoundID:     round.ID,
		SeasonID:    round.SeasonID,
		RaceID:      round.RaceID,
		UserID:      userID,
		Picks:       picks,
		TieBreaker:  input.TieBreaker,
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.entries.Upsert(ctx, entry); err != nil {
		s.logger.Errorf("Failed to save entry for round %s user %s: %v", round.ID.Hex(), userID.Hex(), err)
		return nil, translateRepoError("save entry", err, "prediction round not found")
	}

	s.logger.Debugf("Stored picks for round %s user %s", round.ID.Hex(), userID.Hex())
	return entry, nil
}
