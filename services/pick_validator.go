package services

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/models"
)

// PickInput is a pick set as submitted by a participant
type PickInput struct {
	P1         string   `json:"p1"`
	P2         string   `json:"p2"`
	P3         string   `json:"p3"`
	LastPlace  string   `json:"last_place"`
	TieBreaker *float64 `json:"tie_breaker,omitempty"`
}

// ValidatePicks parses the four picks and checks they are distinct teams of the season
func ValidatePicks(input PickInput, season *models.Season) (models.PickSet, error) {
	raw := []struct {
		slot  string
		value string
	}{
		{models.SlotP1, input.P1},
		{models.SlotP2, input.P2},
		{models.SlotP3, input.P3},
		{models.SlotLastPlace, input.LastPlace},
	}

	ids := make([]primitive.ObjectID, len(raw))
	for i, pick := range raw {
		id, err := models.ParseID(pick.value)
		if err != nil {
			return models.PickSet{}, NewValidationError(pick.slot, "invalid team: %v", err)
		}
		ids[i] = id
	}

	for i := range ids {
		for j := 0; j < i; j++ {
			if ids[i] == ids[j] {
				return models.PickSet{}, NewValidationError(raw[i].slot,
					"team %s is already picked for %s", ids[i].Hex(), raw[j].slot)
			}
		}
	}

	for i, id := range ids {
		if !season.HasTeam(id) {
			return models.PickSet{}, NewValidationError(raw[i].slot,
				"team %s is not part of this season", id.Hex())
		}
	}

	return models.PickSet{P1: ids[0], P2: ids[1], P3: ids[2], LastPlace: ids[3]}, nil
}
