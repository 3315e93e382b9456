package repository

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jmlago/habitloop/internal/models"
)

// AchievementRepository handles unlocked-achievement and progress rows.
type AchievementRepository struct {
	db *DB
}

// NewAchievementRepository creates a new achievement repository.
func NewAchievementRepository(db *DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// GetAllUnlocked retrieves all unlocked achievements, newest first.
func (r *AchievementRepository) GetAllUnlocked() ([]models.UnlockedAchievement, error) {
	var unlocked []models.UnlockedAchievement
	err := r.db.Order("unlocked_at DESC").Find(&unlocked).Error
	return unlocked, err
}

// GetUnlockedByAchievementID retrieves the unlock row for one achievement, or
// nil if it is still locked.
func (r *AchievementRepository) GetUnlockedByAchievementID(achievementID string) (*models.UnlockedAchievement, error) {
	var row models.UnlockedAchievement
	err := r.db.Where("achievement_id = ?", achievementID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// IsUnlocked reports whether an achievement has been unlocked.
func (r *AchievementRepository) IsUnlocked(achievementID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.UnlockedAchievement{}).
		Where("achievement_id = ?", achievementID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUnlockedIDs returns the set of unlocked achievement IDs.
func (r *AchievementRepository) GetUnlockedIDs() (map[string]bool, error) {
	var ids []string
	err := r.db.Model(&models.UnlockedAchievement{}).
		Pluck("achievement_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// RecordUnlock records an unlock exactly once. If the achievement is already
// unlocked (including by a concurrent caller racing this one), the existing
// row is returned with isNew false; the original UnlockedAt is preserved.
func (r *AchievementRepository) RecordUnlock(achievementID string, triggeringHabitID *uint, metadata json.RawMessage) (*models.UnlockedAchievement, bool, error) {
	row := &models.UnlockedAchievement{
		AchievementID:     achievementID,
		UnlockedAt:        time.Now(),
		TriggeringHabitID: triggeringHabitID,
		Metadata:          metadata,
	}

	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "achievement_id"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return nil, false, res.Error
	}

	if res.RowsAffected == 0 {
		// Lost the race or already unlocked: hand back the winner's row.
		existing, err := r.GetUnlockedByAchievementID(achievementID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return row, true, nil
}

// MarkAsViewed sets viewed on the given achievement IDs. Already-viewed rows
// are unaffected; marking twice is a no-op.
func (r *AchievementRepository) MarkAsViewed(achievementIDs []string) error {
	return r.db.Model(&models.UnlockedAchievement{}).
		Where("achievement_id IN ?", achievementIDs).
		Update("viewed", true).Error
}

// MarkAllAsViewed sets viewed on every unlocked achievement.
func (r *AchievementRepository) MarkAllAsViewed() error {
	return r.db.Model(&models.UnlockedAchievement{}).
		Where("viewed = ?", false).
		Update("viewed", true).Error
}

// GetProgress retrieves the progress row for an achievement, or nil.
func (r *AchievementRepository) GetProgress(achievementID string) (*models.AchievementProgress, error) {
	var progress models.AchievementProgress
	err := r.db.Where("achievement_id = ?", achievementID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// GetAllProgress retrieves every progress row.
func (r *AchievementRepository) GetAllProgress() ([]models.AchievementProgress, error) {
	var rows []models.AchievementProgress
	err := r.db.Find(&rows).Error
	return rows, err
}

// UpdateProgress upserts the progress row for an achievement, recomputing the
// percentage.
func (r *AchievementRepository) UpdateProgress(achievementID string, currentValue, targetValue int) (*models.AchievementProgress, error) {
	progress := &models.AchievementProgress{
		AchievementID: achievementID,
		CurrentValue:  currentValue,
		TargetValue:   targetValue,
		Percentage:    models.ProgressPercentage(currentValue, targetValue),
		LastUpdatedAt: time.Now(),
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "achievement_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_value", "target_value", "percentage", "last_updated_at",
		}),
	}).Create(progress).Error
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// DeleteProgress removes the progress row for an achievement. Deleting a
// missing row is not an error.
func (r *AchievementRepository) DeleteProgress(achievementID string) error {
	return r.db.Where("achievement_id = ?", achievementID).
		Delete(&models.AchievementProgress{}).Error
}
