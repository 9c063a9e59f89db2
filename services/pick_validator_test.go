package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"race-league-go/models"
)

func TestValidatePicks(t *testing.T) {
	season := &models.Season{Teams: []primitive.ObjectID{teamA, teamB, teamC, teamD}}
	outsider := primitive.NewObjectID()

	tests := []struct {
		name      string
		input     PickInput
		wantField string
	}{
		{
			name:  "valid",
			input: PickInput{P1: teamA.Hex(), P2: teamB.Hex(), P3: teamC.Hex(), LastPlace: teamD.Hex()},
		},
		{
			name:  "ids are normalised",
			input: PickInput{P1: " " + strings.ToUpper(teamA.Hex()), P2: teamB.Hex(), P3: teamC.Hex(), LastPlace: teamD.Hex() + " "},
		},
		{
			name:      "missing pick",
			input:     PickInput{P1: teamA.Hex(), P2: "", P3: teamC.Hex(), LastPlace: teamD.Hex()},
			wantField: models.SlotP2,
		},
		{
			name:      "malformed id",
			input:     PickInput{P1: teamA.Hex(), P2: teamB.Hex(), P3: "not-a-team", LastPlace: teamD.Hex()},
			wantField: models.SlotP3,
		},
		{
			name:      "duplicate team",
			input:     PickInput{P1: teamA.Hex(), P2: teamB.Hex(), P3: teamC.Hex(), LastPlace: teamA.Hex()},
			wantField: models.SlotLastPlace,
		},
		{
			name:      "duplicate with different spelling",
			input:     PickInput{P1: teamA.Hex(), P2: strings.ToUpper(teamA.Hex()), P3: teamC.Hex(), LastPlace: teamD.Hex()},
			wantField: models.SlotP2,
		},
		{
			name:      "team outside season",
			input:     PickInput{P1: outsider.Hex(), P2: teamB.Hex(), P3: teamC.Hex(), LastPlace: teamD.Hex()},
			wantField: models.SlotP1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			picks, err := ValidatePicks(tt.input, season)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, models.PickSet{P1: teamA, P2: teamB, P3: teamC, LastPlace: teamD}, picks)
				return
			}
			var svcErr *Error
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, KindValidation, svcErr.Kind)
			assert.Equal(t, tt.wantField, svcErr.Field)
		})
	}
}

func TestValidatePicks_DuplicateMessageNamesTeam(t *testing.T) {
	season := &models.Season{Teams: []primitive.ObjectID{teamA, teamB, teamC, teamD}}
	_, err := ValidatePicks(PickInput{P1: teamA.Hex(), P2: teamB.Hex(), P3: teamB.Hex(), LastPlace: teamD.Hex()}, season)
	require.Error(t, err)
	assert.Contains(t, err.Error(), teamB.Hex())
}
