package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/database"
	"race-league-go/logging"
	"race-league-go/models"
)

// PredictionRepositories groups the stores the prediction service works on
type PredictionRepositories struct {
	Rounds     database.RoundRepository
	Entries    database.EntryRepository
	Scores     database.ScoreRepository
	Races      database.RaceRepository
	Seasons    database.SeasonRepository
	Transactor database.Transactor
}

// PredictionService owns the round lifecycle, entries, scoring and overrides
type PredictionService struct {
	rounds  database.RoundRepository
	entries database.EntryRepository
	scores  database.ScoreRepository
	races   database.RaceRepository
	seasons database.SeasonRepository
	tx      database.Transactor

	defaultScoring models.ScoringConfig
	locks          *roundLocks
	metrics        *Metrics
	logger         *logging.Logger
	now            func() time.Time
}

// NewPredictionService creates a new prediction service
func NewPredictionService(repos PredictionRepositories, defaultScoring models.ScoringConfig, metrics *Metrics) *PredictionService {
	return &PredictionService{
		rounds:         repos.Rounds,
		entries:        repos.Entries,
		scores:         repos.Scores,
		races:          repos.Races,
		seasons:        repos.Seasons,
		tx:             repos.Transactor,
		defaultScoring: defaultScoring,
		locks:          newRoundLocks(),
		metrics:        metrics,
		logger:         logging.WithPrefix("RoundService"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreateRoundInput is the admin request for a new round
type CreateRoundInput struct {
	SeasonID string                `json:"season_id"`
	RaceID   string                `json:"race_id"`
	Scoring  *models.ScoringConfig `json:"scoring,omitempty"`
}

// CreateRound creates a draft round for a season/race pair
func (s *PredictionService) CreateRound(ctx context.Context, input CreateRoundInput, actor string) (*models.PredictionRound, error) {
	seasonID, err := parseField("season_id", input.SeasonID)
	if err != nil {
		return nil, err
	}
	raceID, err := parseField("race_id", input.RaceID)
	if err != nil {
		return nil, err
	}

	scoring := s.defaultScoring
	if input.Scoring != nil {
		scoring = *input.Scoring
	}
	if err := validateScoringConfig(scoring); err != nil {
		return nil, err
	}

	if _, err := s.seasons.FindByID(ctx, seasonID); err != nil {
		return nil, translateRepoError("load season", err, "season not found")
	}
	race, err := s.races.FindByID(ctx, raceID)
	if err != nil {
		return nil, translateRepoError("load race", err, "race not found")
	}
	if !race.SeasonID.IsZero() && race.SeasonID != seasonID {
		return nil, NewValidationError("race_id", "race %s does not belong to season %s", raceID.Hex(), seasonID.Hex())
	}

	round := models.NewPredictionRound(seasonID, raceID, scoring, actor, s.now())
	if err := s.rounds.Create(ctx, round); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, &Error{
				Kind:    KindConflict,
				Message: "a prediction round already exists for this season and race",
				Err:     err,
			}
		}
		s.logger.Errorf("Failed to create round for season %s race %s: %v", seasonID.Hex(), raceID.Hex(), err)
		return nil, WrapInternal("create round", err)
	}

	s.logger.Infof("Created prediction round %s for season %s race %s", round.ID.Hex(), seasonID.Hex(), raceID.Hex())
	return round, nil
}

func validateScoringConfig(cfg models.ScoringConfig) error {
	weights := map[string]float64{
		"scoring.exact_position_points":        cfg.ExactPositionPoints,
		"scoring.top3_any_position_points":     cfg.Top3AnyPositionPoints,
		"scoring.exact_last_place_points":      cfg.ExactLastPlacePoints,
		"scoring.tie_breaker_exact_points":     cfg.TieBreakerExactPoints,
		"scoring.tie_breaker_proximity_window": cfg.TieBreakerProximityWindow,
	}
	for field, value := range weights {
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			return NewValidationError(field, "must be a non-negative number")
		}
	}
	return nil
}

func parseField(field, raw string) (primitive.ObjectID, error) {
	id, err := models.ParseID(raw)
	if err != nil {
		return primitive.NilObjectID, NewValidationError(field, "%v", err)
	}
	return id, nil
}

func (s *PredictionService) loadRound(ctx context.Context, roundID primitive.ObjectID) (*models.PredictionRound, error) {
	round, err := s.rounds.FindByID(ctx, roundID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			s.logger.Errorf("Failed to load round %s: %v", roundID.Hex(), err)
		}
		return nil, translateRepoError("load round", err, "prediction round not found")
	}
	return round, nil
}

func (s *PredictionService) saveRound(ctx context.Context, round *models.PredictionRound) error {
	if err := s.rounds.Save(ctx, round); err != nil {
		if !errors.Is(err, database.ErrVersionConflict) {
			s.logger.Errorf("Failed to save round %s: %v", round.ID.Hex(), err)
		}
		return translateRepoError("save round", err, "prediction round not found")
	}
	return nil
}

// TransitionRoundStatus moves a round along its lifecycle. Moving a locked
// round to scored runs the scoring path so scores always exist once scored.
func (s *PredictionService) TransitionRoundStatus(ctx context.Context, roundID string, to models.RoundStatus, actor, reason string) (*models.PredictionRound, error) {
	return s.transition(ctx, roundID, TransitionRequest{To: to, Actor: actor, Reason: reason, Trigger: models.TriggerManual})
}

// PublishRound makes a scored round's results visible to participants
func (s *PredictionService) PublishRound(ctx context.Context, roundID, actor string) (*models.PredictionRound, error) {
	return s.transition(ctx, roundID, TransitionRequest{To: models.RoundStatusPublished, Actor: actor, Trigger: models.TriggerPublish})
}

func (s *PredictionService) transition(ctx context.Context, rawRoundID string, req TransitionRequest) (*models.PredictionRound, error) {
	roundID, err := parseField("round_id", rawRoundID)
	if err != nil {
		return nil, err
	}
	if !req.To.IsValid() {
		return nil, NewValidationError("status", "unknown round status %q", req.To)
	}

	unlock := s.locks.lock(roundID)
	defer unlock()

	round, err := s.loadRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if req.To == models.RoundStatusScored && round.Status != models.RoundStatusScored {
		if !CanTransition(round.Status, req.To) {
			return nil, &Error{
				Kind:    KindConflict,
				Message: "cannot move round from " + string(round.Status) + " to " + string(req.To),
				Err:     ErrInvalidTransition,
			}
		}
		if _, err := s.recompute(ctx, round, RecomputeOptions{Actor: req.Actor, Trigger: req.Trigger}); err != nil {
			return nil, err
		}
		return round, nil
	}

	from := round.Status
	changed, err := ApplyTransition(round, req, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return round, nil
	}
	if err := s.saveRound(ctx, round); err != nil {
		return nil, err
	}

	s.metrics.observeTransition(round.Status)
	s.logger.Infof("Round %s moved %s -> %s by %s", round.ID.Hex(), from, round.Status, req.Actor)
	return round, nil
}

// AdminRoundSummary is a round row in the admin listing
type AdminRoundSummary struct {
	Round      *models.PredictionRound `json:"round"`
	RaceName   string                  `json:"race_name"`
	RaceDate   time.Time               `json:"race_date"`
	EntryCount int                     `json:"entry_count"`
	ScoreCount int                     `json:"score_count"`
}

// ListRoundsForAdmin lists every round, newest race first
func (s *PredictionService) ListRoundsForAdmin(ctx context.Context, seasonID string) ([]AdminRoundSummary, error) {
	filter, err := seasonFilter(seasonID)
	if err != nil {
		return nil, err
	}
	rounds, err := s.rounds.List(ctx, filter)
	if err != nil {
		return nil, WrapInternal("list rounds", err)
	}
	races, err := s.raceIndex(ctx, rounds)
	if err != nil {
		return nil, err
	}

	summaries := make([]AdminRoundSummary, 0, len(rounds))
	for _, round := range rounds {
		entries, err := s.entries.FindByRound(ctx, round.ID)
		if err != nil {
			return nil, WrapInternal("count entries", err)
		}
		scores, err := s.scores.FindByRound(ctx, round.ID)
		if err != nil {
			return nil, WrapInternal("count scores", err)
		}
		summary := AdminRoundSummary{Round: round, EntryCount: len(entries), ScoreCount: len(scores)}
		if race, ok := races[round.RaceID]; ok {
			summary.RaceName = race.Name
			summary.RaceDate = race.Date
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].RaceDate.After(summaries[j].RaceDate)
	})
	return summaries, nil
}

// UserRoundSummary is a round row in a participant's listing
type UserRoundSummary struct {
	RoundID     primitive.ObjectID `json:"round_id"`
	SeasonID    primitive.ObjectID `json:"season_id"`
	RaceID      primitive.ObjectID `json:"race_id"`
	RaceName    string             `json:"race_name"`
	RaceDate    time.Time          `json:"race_date"`
	Status      models.RoundStatus `json:"status"`
	HasEntry    bool               `json:"has_entry"`
	PublishedAt *time.Time         `json:"published_at,omitempty"`
	Version     int64              `json:"version"`
}

// ListRoundsForUser lists the rounds a participant can see; drafts are hidden
func (s *PredictionService) ListRoundsForUser(ctx context.Context, userID primitive.ObjectID, seasonID string) ([]UserRoundSummary, error) {
	filter, err := seasonFilter(seasonID)
	if err != nil {
		return nil, err
	}
	filter.Statuses = visibleStatuses()

	rounds, err := s.rounds.List(ctx, filter)
	if err != nil {
		return nil, WrapInternal("list rounds", err)
	}
	races, err := s.raceIndex(ctx, rounds)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.FindByUser(ctx, userID)
	if err != nil {
		return nil, WrapInternal("load entries", err)
	}
	entered := make(map[primitive.ObjectID]bool, len(entries))
	for _, entry := range entries {
		entered[entry.RoundID] = true
	}

	summaries := make([]UserRoundSummary, 0, len(rounds))
	for _, round := range rounds {
		summary := UserRoundSummary{
			RoundID:     round.ID,
			SeasonID:    round.SeasonID,
			RaceID:      round.RaceID,
			Status:      round.Status,
			HasEntry:    entered[round.ID],
			PublishedAt: round.PublishedAt,
			Version:     round.Version,
		}
		if race, ok := races[round.RaceID]; ok {
			summary.RaceName = race.Name
			summary.RaceDate = race.Date
		}
		summaries = append(summaries, summary)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].RaceDate.After(summaries[j].RaceDate)
	})
	return summaries, nil
}

// AdminRoundDetails is the full view of a round for administrators
type AdminRoundDetails struct {
	Round       *models.PredictionRound     `json:"round"`
	Race        *models.Race                `json:"race,omitempty"`
	Entries     []*models.PredictionEntry   `json:"entries"`
	Scores      []*models.PredictionScore   `json:"scores"`
	Transitions []models.TransitionLogEntry `json:"transitions"`
}

// GetRoundDetailsForAdmin returns a round with all entries, scores and its log
func (s *PredictionService) GetRoundDetailsForAdmin(ctx context.Context, roundID string) (*AdminRoundDetails, error) {
	id, err := parseField("round_id", roundID)
	if err != nil {
		return nil, err
	}
	round, err := s.loadRound(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &AdminRoundDetails{Round: round, Transitions: round.Transitions}
	if race, err := s.races.FindByID(ctx, round.RaceID); err == nil {
		details.Race = race
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, WrapInternal("load race", err)
	}
	if details.Entries, err = s.entries.FindByRound(ctx, round.ID); err != nil {
		return nil, WrapInternal("load entries", err)
	}
	if details.Scores, err = s.scores.FindByRound(ctx, round.ID); err != nil {
		return nil, WrapInternal("load scores", err)
	}
	if details.Entries == nil {
		details.Entries = []*models.PredictionEntry{}
	}
	if details.Scores == nil {
		details.Scores = []*models.PredictionScore{}
	}
	return details, nil
}

// UserRoundDetails is a participant's view of one round. Scores appear only
// once the round is published.
type UserRoundDetails struct {
	Round       *models.PredictionRound   `json:"round"`
	Entry       *models.PredictionEntry   `json:"entry,omitempty"`
	Score       *models.PredictionScore   `json:"score,omitempty"`
	Leaderboard []*models.PredictionScore `json:"leaderboard,omitempty"`
	Version     int64                     `json:"version"`
}

// GetRoundDetailsForUser returns what a participant may see of a round
func (s *PredictionService) GetRoundDetailsForUser(ctx context.Context, roundID string, userID primitive.ObjectID) (*UserRoundDetails, error) {
	id, err := parseField("round_id", roundID)
	if err != nil {
		return nil, err
	}
	round, err := s.loadRound(ctx, id)
	if err != nil {
		return nil, err
	}
	if round.Status == models.RoundStatusDraft {
		return nil, NewNotFoundError("prediction round not found")
	}

	view := round.Clone()
	view.Transitions = nil
	details := &UserRoundDetails{Round: view, Version: round.Version}

	entry, err := s.entries.FindByRoundAndUser(ctx, round.ID, userID)
	switch {
	case err == nil:
		details.Entry = entry
	case !errors.Is(err, database.ErrNotFound):
		return nil, WrapInternal("load entry", err)
	}

	if round.Status == models.RoundStatusPublished {
		scores, err := s.scores.FindByRound(ctx, round.ID)
		if err != nil {
			return nil, WrapInternal("load scores", err)
		}
		sortLeaderboard(scores)
		details.Leaderboard = scores
		for _, score := range scores {
			if score.UserID == userID {
				details.Score = score
			}
		}
	}
	return details, nil
}

func sortLeaderboard(scores []*models.PredictionScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Total != scores[j].Total {
			return scores[i].Total > scores[j].Total
		}
		return scores[i].UserID.Hex() < scores[j].UserID.Hex()
	})
}

func visibleStatuses() []models.RoundStatus {
	statuses := make([]models.RoundStatus, 0, len(models.AllRoundStatuses))
	for _, status := range models.AllRoundStatuses {
		if status != models.RoundStatusDraft {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

func seasonFilter(seasonID string) (database.RoundFilter, error) {
	var filter database.RoundFilter
	if seasonID == "" {
		return filter, nil
	}
	id, err := parseField("season_id", seasonID)
	if err != nil {
		return filter, err
	}
	filter.SeasonID = &id
	return filter, nil
}

func (s *PredictionService) raceIndex(ctx context.Context, rounds []*models.PredictionRound) (map[primitive.ObjectID]*models.Race, error) {
	ids := make([]primitive.ObjectID, 0, len(rounds))
	for _, round := range rounds {
		if !models.ContainsID(ids, round.RaceID) {
			ids = append(ids, round.RaceID)
		}
	}
	races, err := s.races.FindByIDs(ctx, ids)
	if err != nil {
		return nil, WrapInternal("load races", err)
	}
	index := make(map[primitive.ObjectID]*models.Race, len(races))
	for _, race := range races {
		index[race.ID] = race
	}
	return index, nil
}
