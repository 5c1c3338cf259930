package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ChallengesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "challenges_created_total",
			Help: "Total challenges created, rematches included",
		},
	)
	ChallengesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenges_finished_total",
			Help: "Challenges that reached a terminal state",
		},
		[]string{"status"},
	)
	RoundsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rounds_resolved_total",
			Help: "Resolved rounds by outcome from the challenger's side",
		},
		[]string{"outcome"},
	)
	AchievementsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_awarded_total",
			Help: "Achievements unlocked",
		},
		[]string{"type"},
	)
	PersistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persistence_failures_total",
			Help: "Failed writes to the persistence gateway",
		},
		[]string{"op"},
	)
	ActiveMatches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_matches",
			Help: "Pending and active matches held in memory",
		},
	)
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total actions seen by the rate limiter",
		},
		[]string{"scope"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total actions blocked by the rate limiter",
		},
		[]string{"scope"},
	)
)

func init() {
	prometheus.MustRegister(
		ChallengesCreated,
		ChallengesFinished,
		RoundsResolved,
		AchievementsAwarded,
		PersistenceFailures,
		ActiveMatches,
		RLRequests,
		RLBlocked,
	)
}
