package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaceResult is the points one participant earned in a race
type RaceResult struct {
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	PointsEarned float64            `bson:"points_earned" json:"points_earned"`
}

// Race is a single event of a season together with its results
type Race struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SeasonID  primitive.ObjectID `bson:"season_id" json:"season_id"`
	Name      string             `bson:"name" json:"name"`
	Track     string             `bson:"track,omitempty" json:"track,omitempty"`
	Date      time.Time          `bson:"date" json:"date"`
	Results   []RaceResult       `bson:"results" json:"results"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// PointsByUser indexes the results by participant
func (r *Race) PointsByUser() map[primitive.ObjectID]float64 {
	points := make(map[primitive.ObjectID]float64, len(r.Results))
	for _, result := range r.Results {
		points[result.UserID] += result.PointsEarned
	}
	return points
}
