// Package metrics provides Prometheus exporters for engine metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the streak and achievement engine.
var (
	// Counters.
	CompletionsLoggedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completions_logged_total",
			Help: "Total number of habit completion log upserts",
		},
		[]string{"trigger"},
	)

	AchievementsUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Total number of achievements unlocked",
		},
		[]string{"category", "rarity"},
	)

	UnlockChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unlock_checks_total",
			Help: "Total unlock pipeline runs",
		},
		[]string{"trigger", "status"},
	)

	EvaluatorErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluator_errors_total",
			Help: "Total condition evaluator failures isolated by the pipeline",
		},
		[]string{"kind"},
	)

	StreaksRecomputedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streaks_recomputed_total",
			Help: "Total streak state recomputations",
		},
	)

	RolloverJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollover_jobs_run_total",
			Help: "Total daily rollover job executions",
		},
		[]string{"status"},
	)

	// Gauges.
	ActiveHabits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_habits",
			Help: "Current number of non-archived habits",
		},
	)

	UnlockedAchievements = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "unlocked_achievements",
			Help: "Current number of unlocked achievements",
		},
	)

	BestStreakDays = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "best_streak_days",
			Help: "Best streak per habit in days",
		},
		[]string{"habit"},
	)

	// Histograms.
	UnlockCheckDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "unlock_check_duration_seconds",
			Help:    "Duration of one unlock pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)
)

// RecordCompletionLogged records a completion log upsert.
func RecordCompletionLogged(trigger string) {
	CompletionsLoggedTotal.WithLabelValues(trigger).Inc()
}

// RecordAchievementUnlocked records an achievement unlock event.
func RecordAchievementUnlocked(category, rarity string) {
	AchievementsUnlockedTotal.WithLabelValues(category, rarity).Inc()
}

// RecordUnlockCheck records an unlock pipeline run.
func RecordUnlockCheck(trigger, status string) {
	UnlockChecksTotal.WithLabelValues(trigger, status).Inc()
}

// RecordEvaluatorError records an isolated evaluator failure.
func RecordEvaluatorError(kind string) {
	EvaluatorErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordStreakRecomputed records a streak state recomputation.
func RecordStreakRecomputed() {
	StreaksRecomputedTotal.Inc()
}

// RecordRolloverJobRun records a daily rollover job execution.
func RecordRolloverJobRun(status string) {
	RolloverJobsRunTotal.WithLabelValues(status).Inc()
}

// SetActiveHabits sets the current number of non-archived habits.
func SetActiveHabits(count int) {
	ActiveHabits.Set(float64(count))
}

// SetUnlockedAchievements sets the current number of unlocked achievements.
func SetUnlockedAchievements(count int) {
	UnlockedAchievements.Set(float64(count))
}

// SetBestStreak sets the best streak gauge for a habit.
func SetBestStreak(habit string, days int) {
	BestStreakDays.WithLabelValues(habit).Set(float64(days))
}

// ObserveUnlockCheckDuration observes the duration of one pipeline run.
func ObserveUnlockCheckDuration(seconds float64) {
	UnlockCheckDurationSeconds.Observe(seconds)
}
