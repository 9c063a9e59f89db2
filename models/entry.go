package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pick slot names, also used as field names in validation errors
const (
	SlotP1        = "p1"
	SlotP2        = "p2"
	SlotP3        = "p3"
	SlotLastPlace = "last_place"
)

// PickSet is the four team selections of an entry
type PickSet struct {
	P1        primitive.ObjectID `bson:"p1" json:"p1"`
	P2        primitive.ObjectID `bson:"p2" json:"p2"`
	P3        primitive.ObjectID `bson:"p3" json:"p3"`
	LastPlace primitive.ObjectID `bson:"last_place" json:"last_place"`
}

// Slots returns the picks in slot order paired with their slot names
func (p PickSet) Slots() []PickSlot {
	return []PickSlot{
		{Name: SlotP1, TeamID: p.P1},
		{Name: SlotP2, TeamID: p.P2},
		{Name: SlotP3, TeamID: p.P3},
		{Name: SlotLastPlace, TeamID: p.LastPlace},
	}
}

// PickSlot is a single named selection
type PickSlot struct {
	Name   string
	TeamID primitive.ObjectID
}

// PredictionEntry is a participant's submitted picks for a round
type PredictionEntry struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoundID     primitive.ObjectID `bson:"round_id" json:"round_id"`
	SeasonID    primitive.ObjectID `bson:"season_id" json:"season_id"`
	RaceID      primitive.ObjectID `bson:"race_id" json:"race_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Picks       PickSet            `bson:"picks" json:"picks"`
	TieBreaker  *float64           `bson:"tie_breaker,omitempty" json:"tie_breaker,omitempty"`
	SubmittedAt time.Time          `bson:"submitted_at" json:"submitted_at"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Clone returns a copy that shares no pointers with the receiver
func (e *PredictionEntry) Clone() *PredictionEntry {
	if e == nil {
		return nil
	}
	c := *e
	if e.TieBreaker != nil {
		v := *e.TieBreaker
		c.TieBreaker = &v
	}
	return &c
}
