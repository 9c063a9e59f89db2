package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/database"
	"race-league-go/models"
)

// GeneratorRaceResults marks score rows produced from race results
const GeneratorRaceResults = "race-results"

// RecomputeOptions controls a scoring run.
// PreserveOverrides defaults to true when nil.
type RecomputeOptions struct {
	Force             bool   `json:"force"`
	PreserveOverrides *bool  `json:"preserve_overrides,omitempty"`
	Actor             string `json:"-"`
	Trigger           string `json:"-"`
	Reason            string `json:"reason,omitempty"`

	// clearOverrideFor drops this user's override in the same bulk write
	clearOverrideFor *primitive.ObjectID
}

func (o RecomputeOptions) preserveOverrides() bool {
	return o.PreserveOverrides == nil || *o.PreserveOverrides
}

// RecomputeResult reports what a scoring run did
type RecomputeResult struct {
	RoundID            primitive.ObjectID   `json:"round_id"`
	Status             models.RoundStatus   `json:"status"`
	Skipped            bool                 `json:"skipped"`
	RaceResultsHash    string               `json:"race_results_hash"`
	ScoresWritten      int                  `json:"scores_written"`
	PreservedOverrides []primitive.ObjectID `json:"preserved_overrides"`
	RequiresReview     bool                 `json:"requires_review"`
	Version            int64                `json:"version"`
}

// ScoreRoundFromRaceResults scores every participant of a round against the
// current race results
func (s *PredictionService) ScoreRoundFromRaceResults(ctx context.Context, roundID string, opts RecomputeOptions) (*RecomputeResult, error) {
	id, err := parseField("round_id", roundID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	round, err := s.loadRound(ctx, id)
	if err != nil {
		return nil, err
	}
	if opts.Trigger == "" {
		opts.Trigger = models.TriggerScore
		if opts.Force {
			opts.Trigger = models.TriggerRescore
		}
	}
	return s.recompute(ctx, round, opts)
}

// recompute runs the scoring algorithm for a loaded round. The caller holds the round lock.
func (s *PredictionService) recompute(ctx context.Context, round *models.PredictionRound, opts RecomputeOptions) (*RecomputeResult, error) {
	started := time.Now()

	switch {
	case !round.Status.IsScorable():
		return nil, NewConflictError("round is %s; lock it before scoring", round.Status)
	case round.Status == models.RoundStatusPublished && !opts.Force:
		return nil, NewConflictError("round is published; rescoring it requires force")
	}

	race, err := s.races.FindByID(ctx, round.RaceID)
	if err != nil {
		return nil, translateRepoError("load race", err, "race not found")
	}
	hash := HashRaceResults(race.Results)

	result := &RecomputeResult{
		RoundID:            round.ID,
		RaceResultsHash:    hash,
		PreservedOverrides: []primitive.ObjectID{},
	}

	if !opts.Force && round.Status == models.RoundStatusScored && round.LastRaceResultsHash == hash {
		result.Skipped = true
		result.Status = round.Status
		result.RequiresReview = round.RequiresReview
		result.Version = round.Version
		s.metrics.observeRecompute(outcomeSkipped, started)
		s.logger.Infof("Round %s already scored for results %s, skipping", round.ID.Hex(), shortHash(hash))
		return result, nil
	}

	season, err := s.seasons.FindByID(ctx, round.SeasonID)
	if err != nil {
		return nil, translateRepoError("load season", err, "season not found")
	}
	assignments, err := s.seasons.FindAssignments(ctx, round.SeasonID)
	if err != nil {
		return nil, WrapInternal("load team assignments", err)
	}
	entries, err := s.entries.FindByRound(ctx, round.ID)
	if err != nil {
		return nil, WrapInternal("load entries", err)
	}
	existing, err := s.scores.FindByRound(ctx, round.ID)
	if err != nil {
		return nil, WrapInternal("load scores", err)
	}

	entryByUser := make(map[primitive.ObjectID]*models.PredictionEntry, len(entries))
	for _, entry := range entries {
		entryByUser[entry.UserID] = entry
	}
	scoreByUser := make(map[primitive.ObjectID]*models.PredictionScore, len(existing))
	for _, score := range existing {
		scoreByUser[score.UserID] = score
	}

	now := s.now()
	actual := DeriveActualOutcome(season, assignments, race)
	weights := WeightsFromConfig(round.Scoring)
	provenance := models.ScoreProvenance{
		RaceID:          race.ID,
		RaceResultsHash: hash,
		Generator:       GeneratorRaceResults,
		Trigger:         opts.Trigger,
		GeneratedAt:     now,
	}

	participants := eligibleAssignments(season, assignments)
	rows := make([]*models.PredictionScore, 0, len(participants)+1)
	clearedRow := false
	for _, assignment := range participants {
		var picks *models.PickSet
		if entry, ok := entryByUser[assignment.UserID]; ok {
			p := entry.Picks
			picks = &p
		}
		computed := CalculateRoundScore(picks, actual, weights)

		row := &models.PredictionScore{
			RoundID:       round.ID,
			SeasonID:      round.SeasonID,
			RaceID:        round.RaceID,
			UserID:        assignment.UserID,
			Total:         computed.Total,
			Breakdown:     computed.Breakdown,
			Predicted:     picks,
			Actual:        actual,
			GeneratedFrom: provenance,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if prev, ok := scoreByUser[assignment.UserID]; ok {
			row.ID = prev.ID
			row.CreatedAt = prev.CreatedAt
			clearing := opts.clearOverrideFor != nil && *opts.clearOverrideFor == assignment.UserID
			clearedRow = clearedRow || clearing
			if prev.IsOverridden && opts.preserveOverrides() && !clearing {
				row.Total = prev.Total
				row.Breakdown = prev.Breakdown
				row.IsOverridden = true
				row.OverrideReason = prev.OverrideReason
				row.OverriddenBy = prev.OverriddenBy
				row.OverriddenAt = prev.OverriddenAt
				result.PreservedOverrides = append(result.PreservedOverrides, assignment.UserID)
			}
		}
		rows = append(rows, row)
	}
	// A user who left the season has no formula row; clear the flag on the stored one
	if opts.clearOverrideFor != nil && !clearedRow {
		if prev, ok := scoreByUser[*opts.clearOverrideFor]; ok {
			row := prev.Clone()
			row.ClearOverride()
			row.UpdatedAt = now
			rows = append(rows, row)
		}
	}

	if err := s.scores.UpsertMany(ctx, rows); err != nil {
		s.logger.Errorf("Failed to write %d scores for round %s: %v", len(rows), round.ID.Hex(), err)
		return nil, WrapInternal("write scores", err)
	}

	req := TransitionRequest{
		To:      models.RoundStatusScored,
		Actor:   opts.Actor,
		Reason:  opts.Reason,
		Trigger: opts.Trigger,
	}
	from := round.Status
	if from != models.RoundStatusScored {
		recordStatusChange(round, req, now)
	} else {
		appendTransitionLog(round, from, req, now)
	}
	round.LastScoredAt = &now
	round.LastRaceResultsHash = hash
	round.RequiresReview = len(result.PreservedOverrides) > 0

	if err := s.saveRound(ctx, round); err != nil {
		if errors.Is(err, database.ErrVersionConflict) {
			s.logger.Warnf("Round %s changed while scoring; scores written, status not saved", round.ID.Hex())
		}
		return nil, err
	}

	if from != round.Status {
		s.metrics.observeTransition(round.Status)
	}
	s.metrics.observeRecompute(outcomeScored, started)

	result.Status = round.Status
	result.ScoresWritten = len(rows)
	result.RequiresReview = round.RequiresReview
	result.Version = round.Version

	s.logger.Infof("Scored round %s (%s -> %s): %d scores, %d overrides preserved, trigger %s",
		round.ID.Hex(), from, round.Status, len(rows), len(result.PreservedOverrides), opts.Trigger)
	return result, nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
