package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/models"
)

// ScoringWeights are the point values applied by CalculateRoundScore
type ScoringWeights struct {
	ExactPosition   float64
	Top3AnyPosition float64
	ExactLastPlace  float64
}

// WeightsFromConfig extracts the weights in use; tie-breaker settings are ignored
func WeightsFromConfig(cfg models.ScoringConfig) ScoringWeights {
	return ScoringWeights{
		ExactPosition:   cfg.ExactPositionPoints,
		Top3AnyPosition: cfg.Top3AnyPositionPoints,
		ExactLastPlace:  cfg.ExactLastPlacePoints,
	}
}

// RoundScore is the formula result for one participant
type RoundScore struct {
	Total     float64
	Breakdown []models.ScoreBreakdownItem
}

// CalculateRoundScore scores one pick set against the actual outcome.
// A nil pick set scores zero with an empty breakdown.
func CalculateRoundScore(picks *models.PickSet, actual models.ActualOutcome, weights ScoringWeights) RoundScore {
	result := RoundScore{Breakdown: []models.ScoreBreakdownItem{}}
	if picks == nil {
		return result
	}

	var total float64
	for _, slot := range picks.Slots() {
		if slot.TeamID.IsZero() {
			continue
		}
		expected := actual.Position(slot.Name)

		if slot.Name == models.SlotLastPlace {
			if !expected.IsZero() && slot.TeamID == expected {
				result.Breakdown = append(result.Breakdown, models.ScoreBreakdownItem{
					Code:    models.BreakdownExactLastPlace,
					Label:   models.BreakdownLabelLastPlace,
					Points:  weights.ExactLastPlace,
					Details: fmt.Sprintf("picked %s for last place", slot.TeamID.Hex()),
				})
				total += weights.ExactLastPlace
			}
			continue
		}

		switch {
		case !expected.IsZero() && slot.TeamID == expected:
			result.Breakdown = append(result.Breakdown, models.ScoreBreakdownItem{
				Code:    models.BreakdownExactPrefix + slot.Name,
				Label:   models.BreakdownLabelExact,
				Points:  weights.ExactPosition,
				Details: fmt.Sprintf("picked %s for %s", slot.TeamID.Hex(), slot.Name),
			})
			total += weights.ExactPosition
		case actual.InTop3(slot.TeamID):
			result.Breakdown = append(result.Breakdown, models.ScoreBreakdownItem{
				Code:    models.BreakdownTop3Prefix + slot.Name,
				Label:   models.BreakdownLabelTop3,
				Points:  weights.Top3AnyPosition,
				Details: fmt.Sprintf("picked %s for %s, finished in the top 3", slot.TeamID.Hex(), slot.Name),
			})
			total += weights.Top3AnyPosition
		}
	}

	result.Total = roundPoints(total)
	return result
}

// roundPoints rounds half-up to two decimals
func roundPoints(v float64) float64 {
	return math.Round((v+1e-9)*100) / 100
}

type rankedTeam struct {
	userID primitive.ObjectID
	teamID primitive.ObjectID
	points float64
}

// DeriveActualOutcome ranks the season participants that have a team by their
// race points. Ties fall back to team ID order, then user ID.
func DeriveActualOutcome(season *models.Season, assignments []*models.TeamAssignment, race *models.Race) models.ActualOutcome {
	points := race.PointsByUser()
	ranked := make([]rankedTeam, 0, len(assignments))
	for _, assignment := range eligibleAssignments(season, assignments) {
		ranked = append(ranked, rankedTeam{
			userID: assignment.UserID,
			teamID: assignment.TeamID,
			points: points[assignment.UserID],
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].points != ranked[j].points {
			return ranked[i].points > ranked[j].points
		}
		if ti, tj := ranked[i].teamID.Hex(), ranked[j].teamID.Hex(); ti != tj {
			return ti < tj
		}
		return ranked[i].userID.Hex() < ranked[j].userID.Hex()
	})

	outcome := models.ActualOutcome{Top3: []primitive.ObjectID{}}
	podium := []*primitive.ObjectID{&outcome.P1, &outcome.P2, &outcome.P3}
	for i := 0; i < len(podium) && i < len(ranked); i++ {
		*podium[i] = ranked[i].teamID
		outcome.Top3 = append(outcome.Top3, ranked[i].teamID)
	}
	if len(ranked) > 0 {
		outcome.LastPlace = ranked[len(ranked)-1].teamID
	}
	return outcome
}

// eligibleAssignments keeps one assignment per season participant
func eligibleAssignments(season *models.Season, assignments []*models.TeamAssignment) []*models.TeamAssignment {
	seen := make(map[primitive.ObjectID]bool, len(assignments))
	eligible := make([]*models.TeamAssignment, 0, len(assignments))
	for _, assignment := range assignments {
		if assignment == nil || !assignment.Active || assignment.TeamID.IsZero() {
			continue
		}
		if !season.HasParticipant(assignment.UserID) || seen[assignment.UserID] {
			continue
		}
		seen[assignment.UserID] = true
		eligible = append(eligible, assignment)
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].UserID.Hex() < eligible[j].UserID.Hex()
	})
	return eligible
}

type hashedResult struct {
	UserID string  `json:"user_id"`
	Points float64 `json:"points"`
}

// HashRaceResults digests a race's results independently of their order
func HashRaceResults(results []models.RaceResult) string {
	canonical := make([]hashedResult, 0, len(results))
	for _, result := range results {
		canonical = append(canonical, hashedResult{UserID: result.UserID.Hex(), Points: result.PointsEarned})
	}
	sort.Slice(canonical, func(i, j int) bool {
		if canonical[i].UserID != canonical[j].UserID {
			return canonical[i].UserID < canonical[j].UserID
		}
		return canonical[i].Points < canonical[j].Points
	})

	// Marshalling a slice of plain structs cannot fail
	payload, _ := json.Marshal(canonical)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
