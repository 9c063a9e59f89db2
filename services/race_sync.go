package services

import (
	"context"
	"fmt"

	"race-league-go/database"
	"race-league-go/models"
)

// SyncSummary counts what a race result sync did to the attached rounds
type SyncSummary struct {
	RaceID          string `json:"race_id"`
	RaceResultsHash string `json:"race_results_hash"`
	RoundsTotal     int    `json:"rounds_total"`
	Rescored        int    `json:"rescored"`
	ReviewFlagged   int    `json:"review_flagged"`
	Unchanged       int    `json:"unchanged"`
}

// SyncPredictionsForRace reacts to edited race results. Locked and scored
// rounds are rescored in place; published rounds are flagged for review
// instead of being changed under the participants.
func (s *PredictionService) SyncPredictionsForRace(ctx context.Context, raceID, actor string) (*SyncSummary, error) {
	id, err := parseField("race_id", raceID)
	if err != nil {
		return nil, err
	}
	race, err := s.races.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError("load race", err, "race not found")
	}
	hash := HashRaceResults(race.Results)

	rounds, err := s.rounds.List(ctx, database.RoundFilter{
		RaceID: &id,
		Statuses: []models.RoundStatus{
			models.RoundStatusLocked,
			models.RoundStatusScored,
			models.RoundStatusPublished,
		},
	})
	if err != nil {
		return nil, WrapInternal("list rounds", err)
	}

	summary := &SyncSummary{RaceID: id.Hex(), RaceResultsHash: hash, RoundsTotal: len(rounds)}
	for _, listed := range rounds {
		outcome, err := s.syncRound(ctx, listed, hash, actor)
		if err != nil {
			s.logger.Errorf("Race sync failed for round %s: %v", listed.ID.Hex(), err)
			return summary, err
		}
		switch outcome {
		case outcomeRescored:
			summary.Rescored++
		case outcomeReviewFlagged:
			summary.ReviewFlagged++
		default:
			summary.Unchanged++
		}
		s.metrics.observeSync(outcome)
	}

	s.logger.Infof("Race %s sync: %d rounds, %d rescored, %d flagged for review, %d unchanged",
		id.Hex(), summary.RoundsTotal, summary.Rescored, summary.ReviewFlagged, summary.Unchanged)
	return summary, nil
}

func (s *PredictionService) syncRound(ctx context.Context, listed *models.PredictionRound, hash, actor string) (string, error) {
	unlock := s.locks.lock(listed.ID)
	defer unlock()

	// Reload under the lock; the listing may be stale
	round, err := s.loadRound(ctx, listed.ID)
	if err != nil {
		return "", err
	}
	if !round.Status.IsScorable() {
		return outcomeUnchanged, nil
	}

	previous := round.CurrentResultsHash()
	if previous == hash {
		return outcomeUnchanged, nil
	}

	if round.Status == models.RoundStatusPublished {
		round.RequiresReview = true
		round.LastRaceResultsHash = hash
		appendTransitionLog(round, round.Status, TransitionRequest{
			To:      round.Status,
			Actor:   actor,
			Reason:  fmt.Sprintf("race results changed from %s to %s", shortHash(previous), shortHash(hash)),
			Trigger: models.TriggerRaceSync,
		}, s.now())
		if err := s.saveRound(ctx, round); err != nil {
			return "", err
		}
		s.logger.Warnf("Published round %s needs review: race results changed", round.ID.Hex())
		return outcomeReviewFlagged, nil
	}

	if _, err := s.recompute(ctx, round, RecomputeOptions{
		Force:   true,
		Actor:   actor,
		Trigger: models.TriggerRaceSync,
	}); err != nil {
		return "", err
	}
	return outcomeRescored, nil
}
