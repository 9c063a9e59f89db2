package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/database"
)

// DeleteSummary counts the documents removed by a cascade delete
type DeleteSummary struct {
	Rounds  int64 `json:"rounds"`
	Entries int64 `json:"entries"`
	Scores  int64 `json:"scores"`
}

// DeletePredictionRound removes a round with its entries and scores
func (s *PredictionService) DeletePredictionRound(ctx context.Context, roundID string) (*DeleteSummary, error) {
	id, err := parseField("round_id", roundID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	if _, err := s.loadRound(ctx, id); err != nil {
		return nil, err
	}
	return s.cascadeDelete(ctx, []primitive.ObjectID{id})
}

// DeletePredictionDataForSeason removes every round of a season, used when the season is deleted
func (s *PredictionService) DeletePredictionDataForSeason(ctx context.Context, seasonID string) (*DeleteSummary, error) {
	id, err := parseField("season_id", seasonID)
	if err != nil {
		return nil, err
	}
	return s.deleteMatching(ctx, database.RoundFilter{SeasonID: &id})
}

// DeletePredictionDataForRace removes every round of a race, used when the race is deleted
func (s *PredictionService) DeletePredictionDataForRace(ctx context.Context, raceID string) (*DeleteSummary, error) {
	id, err := parseField("race_id", raceID)
	if err != nil {
		return nil, err
	}
	return s.deleteMatching(ctx, database.RoundFilter{RaceID: &id})
}

func (s *PredictionService) deleteMatching(ctx context.Context, filter database.RoundFilter) (*DeleteSummary, error) {
	rounds, err := s.rounds.List(ctx, filter)
	if err != nil {
		return nil, WrapInternal("list rounds", err)
	}
	ids := make([]primitive.ObjectID, 0, len(rounds))
	for _, round := range rounds {
		ids = append(ids, round.ID)
	}
	if len(ids) == 0 {
		return &DeleteSummary{}, nil
	}

	unlock := s.locks.lockAll(ids)
	defer unlock()
	return s.cascadeDelete(ctx, ids)
}

// cascadeDelete removes scores, entries and rounds in one transaction when the
// store supports it
func (s *PredictionService) cascadeDelete(ctx context.Context, roundIDs []primitive.ObjectID) (*DeleteSummary, error) {
	var summary DeleteSummary
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		// Reset so a retried transaction does not double count
		summary = DeleteSummary{}

		var err error
		if summary.Scores, err = s.scores.DeleteByRounds(ctx, roundIDs); err != nil {
			return err
		}
		if summary.Entries, err = s.entries.DeleteByRounds(ctx, roundIDs); err != nil {
			return err
		}
		summary.Rounds, err = s.rounds.DeleteByIDs(ctx, roundIDs)
		return err
	})
	if err != nil {
		s.logger.Errorf("Cascade delete of %d rounds failed: %v", len(roundIDs), err)
		return nil, WrapInternal("delete prediction data", err)
	}

	s.logger.Infof("Deleted %d rounds, %d entries, %d scores", summary.Rounds, summary.Entries, summary.Scores)
	return &summary, nil
}
