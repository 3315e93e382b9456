// Package models defines domain models for the habit tracking engine.
package models

import (
	"strings"
	"time"
)

// Habit represents a user-defined recurring task tracked for daily completion.
type Habit struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"not null;size:255" json:"name"`
	Icon         string     `gorm:"size:50" json:"icon"`
	Color        string     `gorm:"size:20" json:"color"`
	MinimumCount int        `gorm:"default:1" json:"minimum_count"` // completions per day to qualify
	SkipDays     string     `gorm:"size:100" json:"skip_days"`      // comma-separated weekday names, e.g. "Saturday,Sunday"
	ArchivedAt   *time.Time `gorm:"index" json:"archived_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Habit model.
func (Habit) TableName() string {
	return "habits"
}

// IsArchived reports whether the habit has been archived.
func (h *Habit) IsArchived() bool {
	return h.ArchivedAt != nil
}

// QualifyingCount returns the per-day completion count needed to qualify,
// falling back to 1 when unset.
func (h *Habit) QualifyingCount() int {
	if h.MinimumCount < 1 {
		return 1
	}
	return h.MinimumCount
}

// SkipWeekdays parses SkipDays into a weekday set. Unknown names are ignored.
func (h *Habit) SkipWeekdays() map[time.Weekday]bool {
	if h.SkipDays == "" {
		return nil
	}
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	skip := make(map[time.Weekday]bool)
	for _, part := range strings.Split(h.SkipDays, ",") {
		if wd, ok := names[strings.ToLower(strings.TrimSpace(part))]; ok {
			skip[wd] = true
		}
	}
	if len(skip) == 0 {
		return nil
	}
	return skip
}

// Goal groups habits under a shared objective.
type Goal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Goal model.
func (Goal) TableName() string {
	return "goals"
}

// GoalHabit links a habit to a goal.
type GoalHabit struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	GoalID  uint `gorm:"not null;index;uniqueIndex:idx_goal_habit" json:"goal_id"`
	HabitID uint `gorm:"not null;index;uniqueIndex:idx_goal_habit" json:"habit_id"`
}

// TableName specifies the table name for GoalHabit model.
func (GoalHabit) TableName() string {
	return "goal_habits"
}
