package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Breakdown codes
const (
	BreakdownExactPrefix    = "exact_"
	BreakdownTop3Prefix     = "top3_"
	BreakdownExactLastPlace = "exact_last_place"
	BreakdownLabelExact     = "exact position"
	BreakdownLabelTop3      = "team in top 3"
	BreakdownLabelLastPlace = "exact last place"
)

// ScoreBreakdownItem explains one awarded chunk of points
type ScoreBreakdownItem struct {
	Code    string  `bson:"code" json:"code"`
	Label   string  `bson:"label" json:"label"`
	Points  float64 `bson:"points" json:"points"`
	Details string  `bson:"details,omitempty" json:"details,omitempty"`
}

// ActualOutcome is the true result of a race as seen by the prediction game.
// Positions with no ranked team hold the nil ObjectID.
type ActualOutcome struct {
	P1        primitive.ObjectID   `bson:"p1" json:"p1"`
	P2        primitive.ObjectID   `bson:"p2" json:"p2"`
	P3        primitive.ObjectID   `bson:"p3" json:"p3"`
	LastPlace primitive.ObjectID   `bson:"last_place" json:"last_place"`
	Top3      []primitive.ObjectID `bson:"top3" json:"top3"`
}

// InTop3 reports whether teamID finished in the top three
func (a ActualOutcome) InTop3(teamID primitive.ObjectID) bool {
	if teamID.IsZero() {
		return false
	}
	return ContainsID(a.Top3, teamID)
}

// Position returns the actual team for a podium slot name
func (a ActualOutcome) Position(slot string) primitive.ObjectID {
	switch slot {
	case SlotP1:
		return a.P1
	case SlotP2:
		return a.P2
	case SlotP3:
		return a.P3
	case SlotLastPlace:
		return a.LastPlace
	}
	return primitive.NilObjectID
}

// ScoreProvenance records what a score row was computed from
type ScoreProvenance struct {
	RaceID          primitive.ObjectID `bson:"race_id" json:"race_id"`
	RaceResultsHash string             `bson:"race_results_hash" json:"race_results_hash"`
	Generator       string             `bson:"generator" json:"generator"`
	Trigger         string             `bson:"trigger" json:"trigger"`
	GeneratedAt     time.Time          `bson:"generated_at" json:"generated_at"`
}

// PredictionScore is the computed, or manually overridden, result of one user in one round
type PredictionScore struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	RoundID   primitive.ObjectID   `bson:"round_id" json:"round_id"`
	SeasonID  primitive.ObjectID   `bson:"season_id" json:"season_id"`
	RaceID    primitive.ObjectID   `bson:"race_id" json:"race_id"`
	UserID    primitive.ObjectID   `bson:"user_id" json:"user_id"`
	Total     float64              `bson:"total" json:"total"`
	Breakdown []ScoreBreakdownItem `bson:"breakdown" json:"breakdown"`

	// Predicted is nil when the user never submitted picks
	Predicted     *PickSet        `bson:"predicted,omitempty" json:"predicted,omitempty"`
	Actual        ActualOutcome   `bson:"actual" json:"actual"`
	GeneratedFrom ScoreProvenance `bson:"generated_from" json:"generated_from"`

	IsOverridden   bool       `bson:"is_overridden" json:"is_overridden"`
	OverrideReason string     `bson:"override_reason,omitempty" json:"override_reason,omitempty"`
	OverriddenBy   string     `bson:"overridden_by,omitempty" json:"overridden_by,omitempty"`
	OverriddenAt   *time.Time `bson:"overridden_at,omitempty" json:"overridden_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ClearOverride drops the manual correction metadata
func (s *PredictionScore) ClearOverride() {
	s.IsOverridden = false
	s.OverrideReason = ""
	s.OverriddenBy = ""
	s.OverriddenAt = nil
}

// Clone returns a deep copy
func (s *PredictionScore) Clone() *PredictionScore {
	if s == nil {
		return nil
	}
	c := *s
	c.Breakdown = append([]ScoreBreakdownItem{}, s.Breakdown...)
	c.Actual.Top3 = append([]primitive.ObjectID{}, s.Actual.Top3...)
	if s.Predicted != nil {
		p := *s.Predicted
		c.Predicted = &p
	}
	c.OverriddenAt = cloneTime(s.OverriddenAt)
	return &c
}
