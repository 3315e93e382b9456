package models

import (
	"time"
)

// StreakState is the cached streak summary for a habit. It is recomputed on
// every completion-affecting event, never appended to. BestStreak only ever
// grows; the streak store's upsert enforces best = max(existing, incoming).
type StreakState struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	HabitID            uint       `gorm:"not null;uniqueIndex" json:"habit_id"`
	Habit              Habit      `gorm:"foreignKey:HabitID" json:"habit,omitempty"`
	CurrentStreak      int        `gorm:"not null;default:0" json:"current_streak"`
	BestStreak         int        `gorm:"not null;default:0" json:"best_streak"`
	LastCompletionDate *time.Time `json:"last_completion_date"`
	StreakStartDate    *time.Time `json:"streak_start_date"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName specifies the table name for StreakState model.
func (StreakState) TableName() string {
	return "streak_states"
}

// AtRisk reports whether the streak survives but today's completion is still
// missing: the last qualifying day is exactly one day before asOf.
func (s *StreakState) AtRisk(asOf time.Time) bool {
	if s.CurrentStreak == 0 || s.LastCompletionDate == nil {
		return false
	}
	return DaysBetween(*s.LastCompletionDate, asOf) == 1
}
