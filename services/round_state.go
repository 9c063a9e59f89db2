package services

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"race-league-go/models"
)

// forwardTransitions are the standard lifecycle edges
var forwardTransitions = map[models.RoundStatus]models.RoundStatus{
	models.RoundStatusDraft:  models.RoundStatusOpen,
	models.RoundStatusOpen:   models.RoundStatusLocked,
	models.RoundStatusLocked: models.RoundStatusScored,
	models.RoundStatusScored: models.RoundStatusPublished,
}

// IsReopen reports whether from→to sends a closed round back to open
func IsReopen(from, to models.RoundStatus) bool {
	if to != models.RoundStatusOpen {
		return false
	}
	return from == models.RoundStatusLocked || from == models.RoundStatusScored || from == models.RoundStatusPublished
}

// CanTransition reports whether from→to is a legal edge, same-status included
func CanTransition(from, to models.RoundStatus) bool {
	if from == to {
		return true
	}
	return forwardTransitions[from] == to || IsReopen(from, to)
}

// TransitionRequest describes a requested status change
type TransitionRequest struct {
	To      models.RoundStatus
	Actor   string
	Reason  string
	Trigger string
}

// ApplyTransition moves the round to req.To if the edge is legal. It returns
// false without touching the round when the status already matches.
func ApplyTransition(round *models.PredictionRound, req TransitionRequest, now time.Time) (bool, error) {
	if !req.To.IsValid() {
		return false, NewValidationError("status", "unknown round status %q", req.To)
	}
	from := round.Status
	if from == req.To {
		return false, nil
	}

	switch {
	case forwardTransitions[from] == req.To:
	case IsReopen(from, req.To):
		if strings.TrimSpace(req.Reason) == "" {
			return false, NewValidationError("reason", "a reason is required to reopen a %s round", from)
		}
	default:
		return false, &Error{
			Kind:    KindConflict,
			Message: "cannot move round from " + string(from) + " to " + string(req.To),
			Err:     ErrInvalidTransition,
		}
	}

	recordStatusChange(round, req, now)
	return true, nil
}

// recordStatusChange sets the new status without checking the edge. The
// scoring path uses it directly for forced rescoring of published rounds.
func recordStatusChange(round *models.PredictionRound, req TransitionRequest, now time.Time) {
	appendTransitionLog(round, round.Status, req, now)
	round.Status = req.To

	at := now
	switch req.To {
	case models.RoundStatusOpen:
		round.OpenedAt = &at
	case models.RoundStatusLocked:
		round.LockedAt = &at
	case models.RoundStatusScored:
		round.ScoredAt = &at
	case models.RoundStatusPublished:
		round.PublishedAt = &at
		round.RequiresReview = false
	}
}

// appendTransitionLog writes a log line; from may equal req.To for re-scores and review flags
func appendTransitionLog(round *models.PredictionRound, from models.RoundStatus, req TransitionRequest, now time.Time) {
	actor := req.Actor
	if actor == "" {
		actor = models.ActorSystem
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = models.TriggerManual
	}
	round.Transitions = append(round.Transitions, models.TransitionLogEntry{
		ID:      uuid.NewString(),
		From:    from,
		To:      req.To,
		By:      actor,
		At:      now,
		Reason:  strings.TrimSpace(req.Reason),
		Trigger: trigger,
	})
}
