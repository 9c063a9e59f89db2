package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/database"
	"race-league-go/models"
)

// HistoryItem is one published round in a participant's prediction history
type HistoryItem struct {
	RoundID      primitive.ObjectID          `json:"round_id"`
	SeasonID     primitive.ObjectID          `json:"season_id"`
	RaceID       primitive.ObjectID          `json:"race_id"`
	RaceName     string                      `json:"race_name"`
	RaceDate     time.Time                   `json:"race_date"`
	Total        float64                     `json:"total"`
	Breakdown    []models.ScoreBreakdownItem `json:"breakdown"`
	IsOverridden bool                        `json:"is_overridden"`
	RunningTotal float64                     `json:"running_total"`
	PublishedAt  *time.Time                  `json:"published_at,omitempty"`
}

// GetUserPredictionHistory lists a user's published round scores, newest
// race first, with the running season total at each round
func (s *PredictionService) GetUserPredictionHistory(ctx context.Context, userID primitive.ObjectID, seasonID string) ([]HistoryItem, error) {
	var seasonFilter *primitive.ObjectID
	if seasonID != "" {
		id, err := parseField("season_id", seasonID)
		if err != nil {
			return nil, err
		}
		seasonFilter = &id
	}

	scores, err := s.scores.FindByUser(ctx, userID)
	if err != nil {
		return nil, WrapInternal("load scores", err)
	}

	items := make([]HistoryItem, 0, len(scores))
	var raceIDs []primitive.ObjectID
	for _, score := range scores {
		if seasonFilter != nil && score.SeasonID != *seasonFilter {
			continue
		}
		round, err := s.rounds.FindByID(ctx, score.RoundID)
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Errorf("Failed to load round %s for history of user %s: %v", score.RoundID.Hex(), userID.Hex(), err)
			return nil, WrapInternal("load round", err)
		}
		if round.Status != models.RoundStatusPublished {
			continue
		}
		items = append(items, HistoryItem{
			RoundID:      round.ID,
			SeasonID:     round.SeasonID,
			RaceID:       round.RaceID,
			Total:        score.Total,
			Breakdown:    score.Breakdown,
			IsOverridden: score.IsOverridden,
			PublishedAt:  round.PublishedAt,
		})
		raceIDs = append(raceIDs, round.RaceID)
	}

	races, err := s.races.FindByIDs(ctx, raceIDs)
	if err != nil {
		return nil, WrapInternal("load races", err)
	}
	byID := make(map[primitive.ObjectID]*models.Race, len(races))
	for _, race := range races {
		byID[race.ID] = race
	}
	for i := range items {
		if race, ok := byID[items[i].RaceID]; ok {
			items[i].RaceName = race.Name
			items[i].RaceDate = race.Date
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RaceDate.Before(items[j].RaceDate)
	})
	running := make(map[primitive.ObjectID]float64)
	for i := range items {
		running[items[i].SeasonID] = roundPoints(running[items[i].SeasonID] + items[i].Total)
		items[i].RunningTotal = running[items[i].SeasonID]
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}
