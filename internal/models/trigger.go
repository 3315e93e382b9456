package models

import (
	"time"
)

// Trigger type constants. Every unlock check starts from one of these events.
const (
	TriggerTaskCreated    = "task_created"
	TriggerTaskCompletion = "task_completion"
	TriggerTaskCustomized = "task_customized"
	TriggerDayRollover    = "day_rollover" // synthetic, raised by the scheduler
)

// TriggerContext describes the user action that initiates an unlock check.
type TriggerContext struct {
	Trigger string     `json:"trigger"`
	HabitID *uint      `json:"habit_id,omitempty"`
	Date    *time.Time `json:"date,omitempty"`
	At      time.Time  `json:"at"` // wall-clock time of the event
}

// EffectiveDate returns the calendar day the trigger applies to, defaulting
// to the event's own day when no explicit date was supplied.
func (t *TriggerContext) EffectiveDate() time.Time {
	if t.Date != nil {
		return DateOnly(*t.Date)
	}
	return DateOnly(t.At)
}
