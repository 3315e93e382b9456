package models

import (
	"time"
)

// CompletionLog records how many times a habit was completed on a calendar day.
// (habit_id, date) is a natural key: at most one row per habit per day. A row
// with Count 0 means "explicitly not done" and is distinct from no row at all.
type CompletionLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	HabitID   uint      `gorm:"not null;index;uniqueIndex:idx_habit_date" json:"habit_id"`
	Habit     Habit     `gorm:"foreignKey:HabitID" json:"habit,omitempty"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_habit_date" json:"date"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for CompletionLog model.
func (CompletionLog) TableName() string {
	return "completion_logs"
}

// Qualifies reports whether this log counts as a completion for the given
// per-day minimum.
func (l *CompletionLog) Qualifies(minimumCount int) bool {
	return l.Count >= minimumCount
}

// DateOnly normalizes a timestamp to midnight, keeping only the calendar day.
// All streak arithmetic is timezone-naive and works on normalized dates.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the whole calendar days from a to b (both normalized).
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}
