package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"race-league-go/models"
)

// Metric label values
const (
	outcomeScored        = "scored"
	outcomeSkipped       = "skipped"
	outcomeRescored      = "rescored"
	outcomeReviewFlagged = "review_flagged"
	outcomeUnchanged     = "unchanged"
	overrideActionSet    = "set"
	overrideActionClear  = "clear"
)

// Metrics holds the prediction engine's Prometheus collectors. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	recomputeTotal    *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	overridesTotal    *prometheus.CounterVec
	raceSyncRounds    *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them when reg is not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		recomputeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "race_league",
			Subsystem: "prediction",
			Name:      "recompute_total",
			Help:      "Round score recomputations by outcome.",
		}, []string{"outcome"}),
		recomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "race_league",
			Subsystem: "prediction",
			Name:      "recompute_duration_seconds",
			Help:      "Time spent recomputing the scores of a round.",
			Buckets:   prometheus.DefBuckets,
		}),
		overridesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "race_league",
			Subsystem: "prediction",
			Name:      "overrides_total",
			Help:      "Manual score overrides set or cleared.",
		}, []string{"action"}),
		raceSyncRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "race_league",
			Subsystem: "prediction",
			Name:      "race_sync_rounds_total",
			Help:      "Rounds visited by race result syncs by outcome.",
		}, []string{"outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "race_league",
			Subsystem: "prediction",
			Name:      "transitions_total",
			Help:      "Round status transitions by target status.",
		}, []string{"to"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.recomputeTotal,
			m.recomputeDuration,
			m.overridesTotal,
			m.raceSyncRounds,
			m.transitionsTotal,
		)
	}
	return m
}

func (m *Metrics) observeRecompute(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.recomputeTotal.WithLabelValues(outcome).Inc()
	if outcome != outcomeSkipped {
		m.recomputeDuration.Observe(time.Since(started).Seconds())
	}
}

func (m *Metrics) observeOverride(action string) {
	if m == nil {
		return
	}
	m.overridesTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) observeSync(outcome string) {
	if m == nil {
		return
	}
	m.raceSyncRounds.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeTransition(to models.RoundStatus) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(string(to)).Inc()
}
