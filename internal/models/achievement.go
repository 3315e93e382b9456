package models

import (
	"encoding/json"
	"time"
)

// UnlockedAchievement is the persisted fact that an achievement was earned.
// Rows are write-once per achievement ID; only the Viewed flag is ever
// updated afterwards.
type UnlockedAchievement struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	AchievementID     string          `gorm:"uniqueIndex;not null;size:100" json:"achievement_id"`
	UnlockedAt        time.Time       `gorm:"not null" json:"unlocked_at"`
	TriggeringHabitID *uint           `gorm:"index" json:"triggering_habit_id"`
	Metadata          json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Viewed            bool            `gorm:"not null;default:false" json:"viewed"`
	CreatedAt         time.Time       `json:"created_at"`
}

// TableName specifies the table name for UnlockedAchievement model.
func (UnlockedAchievement) TableName() string {
	return "unlocked_achievements"
}

// AchievementProgress tracks partial progress toward a locked achievement.
// It exists only while the achievement is locked and is deleted on unlock.
type AchievementProgress struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AchievementID string    `gorm:"uniqueIndex;not null;size:100" json:"achievement_id"`
	CurrentValue  int       `gorm:"not null;default:0" json:"current_value"`
	TargetValue   int       `gorm:"not null" json:"target_value"`
	Percentage    int       `gorm:"not null;default:0" json:"percentage"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// TableName specifies the table name for AchievementProgress model.
func (AchievementProgress) TableName() string {
	return "achievement_progress"
}

// ProgressPercentage computes floor(current/target*100) capped at 100.
func ProgressPercentage(current, target int) int {
	if target <= 0 {
		return 0
	}
	pct := current * 100 / target
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}
