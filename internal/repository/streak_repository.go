package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/jmlago/habitloop/internal/models"
)

// StreakRepository handles streak-state database operations.
type StreakRepository struct {
	db *DB
}

// NewStreakRepository creates a new streak repository.
func NewStreakRepository(db *DB) *StreakRepository {
	return &StreakRepository{db: db}
}

// GetAll retrieves streak state for every habit.
func (r *StreakRepository) GetAll() ([]models.StreakState, error) {
	var states []models.StreakState
	err := r.db.Find(&states).Error
	return states, err
}

// GetByHabitID retrieves the streak state for one habit, or nil if none exists.
func (r *StreakRepository) GetByHabitID(habitID uint) (*models.StreakState, error) {
	var state models.StreakState
	err := r.db.Where("habit_id = ?", habitID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// CreateOrUpdate upserts the streak state for a habit. The best-streak
// conflict rule lives here, not in callers: the stored best never decreases
// and absorbs the incoming current streak, so historical backfills evaluated
// in any order leave best correct.
func (r *StreakRepository) CreateOrUpdate(habitID uint, currentStreak, bestStreak int, lastCompletionDate, streakStartDate *time.Time) (*models.StreakState, error) {
	var out *models.StreakState
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var state models.StreakState
		err := tx.Where("habit_id = ?", habitID).First(&state).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			state = models.StreakState{HabitID: habitID}
		case err != nil:
			return err
		}

		best := state.BestStreak
		if bestStreak > best {
			best = bestStreak
		}
		if currentStreak > best {
			best = currentStreak
		}

		state.CurrentStreak = currentStreak
		state.BestStreak = best
		state.LastCompletionDate = lastCompletionDate
		state.StreakStartDate = streakStartDate
		state.UpdatedAt = time.Now()

		if err := tx.Save(&state).Error; err != nil {
			return err
		}
		out = &state
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByHabitID removes the streak state for a habit.
func (r *StreakRepository) DeleteByHabitID(habitID uint) error {
	return r.db.Where("habit_id = ?", habitID).Delete(&models.StreakState{}).Error
}
