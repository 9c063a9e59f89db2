package services

import (
	"context"
	"math"
	"strings"

	"race-league-go/models"
)

// OverrideInput is an administrator's manual correction
type OverrideInput struct {
	Total  *float64 `json:"total"`
	Reason string   `json:"reason"`
}

// OverrideUserScore replaces a user's computed total. The breakdown is kept
// so the formula result stays visible next to the correction.
func (s *PredictionService) OverrideUserScore(ctx context.Context, roundID, userID string, input OverrideInput, actor string) (*models.PredictionScore, error) {
	rid, err := parseField("round_id", roundID)
	if err != nil {
		return nil, err
	}
	uid, err := parseField("user_id", userID)
	if err != nil {
		return nil, err
	}
	if input.Total == nil || math.IsNaN(*input.Total) || math.IsInf(*input.Total, 0) {
		return nil, NewValidationError("total", "must be a finite number")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, NewValidationError("reason", "a reason is required to override a score")
	}

	unlock := s.locks.lock(rid)
	defer unlock()

	round, err := s.loadRound(ctx, rid)
	if err != nil {
		return nil, err
	}
	if !round.Status.HasScores() {
		return nil, NewConflictError("round is %s; scores can only be overridden once it is scored", round.Status)
	}

	score, err := s.scores.FindByRoundAndUser(ctx, rid, uid)
	if err != nil {
		return nil, translateRepoError("load score", err, "no score exists for this user yet; score the round first")
	}

	now := s.now()
	score.Total = roundPoints(*input.Total)
	score.IsOverridden = true
	score.OverrideReason = reason
	score.OverriddenBy = actor
	score.OverriddenAt = &now
	score.UpdatedAt = now

	if err := s.scores.Update(ctx, score); err != nil {
		return nil, translateRepoError("save score override", err, "no score exists for this user yet; score the round first")
	}

	s.metrics.observeOverride(overrideActionSet)
	s.logger.Infof("Score of user %s in round %s overridden to %.2f by %s: %s",
		uid.Hex(), rid.Hex(), score.Total, actor, reason)
	return score, nil
}

// ClearUserScoreOverride drops a manual correction and rescores the round so
// the user's row reverts to the formula. Other overrides are preserved.
func (s *PredictionService) ClearUserScoreOverride(ctx context.Context, roundID, userID, actor string) (*RecomputeResult, error) {
	rid, err := parseField("round_id", roundID)
	if err != nil {
		return nil, err
	}
	uid, err := parseField("user_id", userID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(rid)
	defer unlock()

	round, err := s.loadRound(ctx, rid)
	if err != nil {
		return nil, err
	}
	if !round.Status.IsScorable() {
		return nil, NewConflictError("round is %s; overrides can only be cleared on a round that can be rescored", round.Status)
	}
	score, err := s.scores.FindByRoundAndUser(ctx, rid, uid)
	if err != nil {
		return nil, translateRepoError("load score", err, "no score exists for this user yet; score the round first")
	}
	if !score.IsOverridden {
		return nil, NewConflictError("score of user %s is not overridden", uid.Hex())
	}

	// The cleared row is written by the rescore itself, so a failed rescore leaves the override in place
	result, err := s.recompute(ctx, round, RecomputeOptions{
		Force:            true,
		Actor:            actor,
		Trigger:          models.TriggerOverrideClear,
		Reason:           "override cleared for user " + uid.Hex(),
		clearOverrideFor: &uid,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.observeOverride(overrideActionClear)
	s.logger.Infof("Override of user %s in round %s cleared by %s", uid.Hex(), rid.Hex(), actor)
	return result, nil
}
