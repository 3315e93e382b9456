package repository

import (
	"time"

	"github.com/jmlago/habitloop/internal/models"
)

// HabitRepository handles habit-related database operations.
type HabitRepository struct {
	db *DB
}

// NewHabitRepository creates a new habit repository.
func NewHabitRepository(db *DB) *HabitRepository {
	return &HabitRepository{db: db}
}

// Create creates a new habit.
func (r *HabitRepository) Create(habit *models.Habit) error {
	return r.db.Create(habit).Error
}

// Update saves changes to an existing habit.
func (r *HabitRepository) Update(habit *models.Habit) error {
	return r.db.Save(habit).Error
}

// GetByID retrieves a habit by its ID.
func (r *HabitRepository) GetByID(id uint) (*models.Habit, error) {
	var habit models.Habit
	err := r.db.First(&habit, id).Error
	if err != nil {
		return nil, err
	}
	return &habit, nil
}

// GetByIDs retrieves habits for the given IDs.
func (r *HabitRepository) GetByIDs(ids []uint) ([]models.Habit, error) {
	var habits []models.Habit
	err := r.db.Where("id IN ?", ids).Find(&habits).Error
	return habits, err
}

// GetAll retrieves all non-archived habits ordered by creation time.
func (r *HabitRepository) GetAll() ([]models.Habit, error) {
	var habits []models.Habit
	err := r.db.Where("archived_at IS NULL").Order("created_at ASC").Find(&habits).Error
	return habits, err
}

// GetAllIncludingArchived retrieves every habit, archived or not.
func (r *HabitRepository) GetAllIncludingArchived() ([]models.Habit, error) {
	var habits []models.Habit
	err := r.db.Order("created_at ASC").Find(&habits).Error
	return habits, err
}

// CountActive returns the number of non-archived habits.
func (r *HabitRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&models.Habit{}).Where("archived_at IS NULL").Count(&count).Error
	return count, err
}

// GetOldest returns the habit with the earliest creation time, archived
// included. Used as the account-age reference for anniversary achievements.
func (r *HabitRepository) GetOldest() (*models.Habit, error) {
	var habit models.Habit
	err := r.db.Order("created_at ASC").First(&habit).Error
	if err != nil {
		return nil, err
	}
	return &habit, nil
}

// Archive marks a habit as archived without deleting its history.
func (r *HabitRepository) Archive(id uint) error {
	now := time.Now()
	return r.db.Model(&models.Habit{}).Where("id = ?", id).
		Update("archived_at", &now).Error
}

// Delete removes a habit and, via foreign keys, its logs and streak state.
func (r *HabitRepository) Delete(id uint) error {
	return r.db.Delete(&models.Habit{}, id).Error
}
