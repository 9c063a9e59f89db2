package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Season is the roster of a championship: who takes part and which teams exist.
// Seasons are managed outside the prediction core and only read here.
type Season struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name         string               `bson:"name" json:"name"`
	Year         int                  `bson:"year" json:"year"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	Teams        []primitive.ObjectID `bson:"teams" json:"teams"`
	CreatedAt    time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updated_at"`
}

// HasTeam returns whether the team is on the season roster
func (s *Season) HasTeam(teamID primitive.ObjectID) bool {
	return ContainsID(s.Teams, teamID)
}

// HasParticipant returns whether the user takes part in the season
func (s *Season) HasParticipant(userID primitive.ObjectID) bool {
	return ContainsID(s.Participants, userID)
}

// Team is a competitor a participant drives for during a season
type Team struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SeasonID primitive.ObjectID `bson:"season_id" json:"season_id"`
	Name     string             `bson:"name" json:"name"`
	Abbr     string             `bson:"abbr" json:"abbr"`
}

// TeamAssignment maps a participant to their team for a season.
// At most one active assignment exists per (user, season).
type TeamAssignment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	SeasonID   primitive.ObjectID `bson:"season_id" json:"season_id"`
	TeamID     primitive.ObjectID `bson:"team_id" json:"team_id"`
	Active     bool               `bson:"active" json:"active"`
	AssignedAt time.Time          `bson:"assigned_at" json:"assigned_at"`
}
