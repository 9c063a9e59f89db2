package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoundStatus is the lifecycle state of a prediction round
type RoundStatus string

const (
	RoundStatusDraft     RoundStatus = "draft"
	RoundStatusOpen      RoundStatus = "open"
	RoundStatusLocked    RoundStatus = "locked"
	RoundStatusScored    RoundStatus = "scored"
	RoundStatusPublished RoundStatus = "published"
)

// AllRoundStatuses lists statuses in lifecycle order
var AllRoundStatuses = []RoundStatus{
	RoundStatusDraft,
	RoundStatusOpen,
	RoundStatusLocked,
	RoundStatusScored,
	RoundStatusPublished,
}

// IsValid returns true for a known status
func (s RoundStatus) IsValid() bool {
	for _, status := range AllRoundStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsScorable returns true when race results may be applied to the round
func (s RoundStatus) IsScorable() bool {
	return s == RoundStatusLocked || s == RoundStatusScored || s == RoundStatusPublished
}

// HasScores returns true once at least one scoring run has completed
func (s RoundStatus) HasScores() bool {
	return s == RoundStatusScored || s == RoundStatusPublished
}

// Transition triggers recorded in the round log
const (
	TriggerManual        = "manual"
	TriggerScore         = "score"
	TriggerRescore       = "rescore"
	TriggerPublish       = "publish"
	TriggerRaceSync      = "race_sync"
	TriggerOverrideClear = "override_clear"
)

// ActorSystem marks log entries and scores written without a human actor
const ActorSystem = "system"

// Default point weights
const (
	DefaultExactPositionPoints   = 6
	DefaultTop3AnyPositionPoints = 3
	DefaultExactLastPlacePoints  = 4
)

// ScoringConfig holds the point weights for a round.
// The tie-breaker fields are stored and returned but not used for scoring yet.
type ScoringConfig struct {
	ExactPositionPoints       float64 `bson:"exact_position_points" json:"exact_position_points"`
	Top3AnyPositionPoints     float64 `bson:"top3_any_position_points" json:"top3_any_position_points"`
	ExactLastPlacePoints      float64 `bson:"exact_last_place_points" json:"exact_last_place_points"`
	TieBreakerEnabled         bool    `bson:"tie_breaker_enabled" json:"tie_breaker_enabled"`
	TieBreakerExactPoints     float64 `bson:"tie_breaker_exact_points" json:"tie_breaker_exact_points"`
	TieBreakerProximityWindow float64 `bson:"tie_breaker_proximity_window" json:"tie_breaker_proximity_window"`
}

// DefaultScoringConfig returns the standard 6/3/4 weights
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		ExactPositionPoints:   DefaultExactPositionPoints,
		Top3AnyPositionPoints: DefaultTop3AnyPositionPoints,
		ExactLastPlacePoints:  DefaultExactLastPlacePoints,
	}
}

// TransitionLogEntry is one immutable line in a round's audit log
type TransitionLogEntry struct {
	ID      string      `bson:"id" json:"id"`
	From    RoundStatus `bson:"from" json:"from"`
	To      RoundStatus `bson:"to" json:"to"`
	By      string      `bson:"by" json:"by"`
	At      time.Time   `bson:"at" json:"at"`
	Reason  string      `bson:"reason,omitempty" json:"reason,omitempty"`
	Trigger string      `bson:"trigger" json:"trigger"`
}

// PredictionRound is the prediction contest for one race of one season
type PredictionRound struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SeasonID primitive.ObjectID `bson:"season_id" json:"season_id"`
	RaceID   primitive.ObjectID `bson:"race_id" json:"race_id"`
	Status   RoundStatus        `bson:"status" json:"status"`
	Scoring  ScoringConfig      `bson:"scoring" json:"scoring"`

	OpenedAt    *time.Time `bson:"opened_at,omitempty" json:"opened_at,omitempty"`
	LockedAt    *time.Time `bson:"locked_at,omitempty" json:"locked_at,omitempty"`
	ScoredAt    *time.Time `bson:"scored_at,omitempty" json:"scored_at,omitempty"`
	PublishedAt *time.Time `bson:"published_at,omitempty" json:"published_at,omitempty"`

	RequiresReview      bool       `bson:"requires_review" json:"requires_review"`
	LastScoredAt        *time.Time `bson:"last_scored_at,omitempty" json:"last_scored_at,omitempty"`
	LastRaceResultsHash string     `bson:"last_race_results_hash,omitempty" json:"last_race_results_hash,omitempty"`

	Transitions []TransitionLogEntry `bson:"transitions" json:"transitions"`

	// Version increases on every save and guards against lost updates
	Version   int64     `bson:"version" json:"version"`
	CreatedBy string    `bson:"created_by" json:"created_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NewPredictionRound creates a draft round for a season/race pair
func NewPredictionRound(seasonID, raceID primitive.ObjectID, scoring ScoringConfig, createdBy string, now time.Time) *PredictionRound {
	return &PredictionRound{
		SeasonID:    seasonID,
		RaceID:      raceID,
		Status:      RoundStatusDraft,
		Scoring:     scoring,
		Transitions: []TransitionLogEntry{},
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy so stored documents are never aliased
func (r *PredictionRound) Clone() *PredictionRound {
	if r == nil {
		return nil
	}
	c := *r
	c.OpenedAt = cloneTime(r.OpenedAt)
	c.LockedAt = cloneTime(r.LockedAt)
	c.ScoredAt = cloneTime(r.ScoredAt)
	c.PublishedAt = cloneTime(r.PublishedAt)
	c.LastScoredAt = cloneTime(r.LastScoredAt)
	c.Transitions = append([]TransitionLogEntry{}, r.Transitions...)
	return &c
}

// CurrentResultsHash returns the stored results hash only while it is meaningful
func (r *PredictionRound) CurrentResultsHash() string {
	if !r.Status.HasScores() {
		return ""
	}
	return r.LastRaceResultsHash
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
