package repository

import (
	"github.com/jmlago/habitloop/internal/models"
)

// GoalRepository handles goal and goal-habit-link database operations.
type GoalRepository struct {
	db *DB
}

// NewGoalRepository creates a new goal repository.
func NewGoalRepository(db *DB) *GoalRepository {
	return &GoalRepository{db: db}
}

// Create creates a new goal.
func (r *GoalRepository) Create(goal *models.Goal) error {
	return r.db.Create(goal).Error
}

// GetAll retrieves all goals ordered by creation time.
func (r *GoalRepository) GetAll() ([]models.Goal, error) {
	var goals []models.Goal
	err := r.db.Order("created_at ASC").Find(&goals).Error
	return goals, err
}

// LinkHabit links a habit to a goal. Re-linking is a no-op via the unique index.
func (r *GoalRepository) LinkHabit(goalID, habitID uint) error {
	link := &models.GoalHabit{GoalID: goalID, HabitID: habitID}
	err := r.db.Where("goal_id = ? AND habit_id = ?", goalID, habitID).
		FirstOrCreate(link).Error
	return err
}

// UnlinkHabit removes a goal-habit link.
func (r *GoalRepository) UnlinkHabit(goalID, habitID uint) error {
	return r.db.Where("goal_id = ? AND habit_id = ?", goalID, habitID).
		Delete(&models.GoalHabit{}).Error
}

// GetHabitIDs returns the IDs of habits linked to a goal.
func (r *GoalRepository) GetHabitIDs(goalID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.GoalHabit{}).
		Where("goal_id = ?", goalID).
		Pluck("habit_id", &ids).Error
	return ids, err
}

// GetAllLinks returns every goal-habit link.
func (r *GoalRepository) GetAllLinks() ([]models.GoalHabit, error) {
	var links []models.GoalHabit
	err := r.db.Find(&links).Error
	return links, err
}
