package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jmlago/habitloop/internal/models"
)

// LogRepository handles completion-log database operations.
type LogRepository struct {
	db *DB
}

// NewLogRepository creates a new completion-log repository.
func NewLogRepository(db *DB) *LogRepository {
	return &LogRepository{db: db}
}

// Upsert creates or updates the log row for the entry's (habit, date) natural
// key. Counts replace, they do not accumulate: the caller owns the new total.
func (r *LogRepository) Upsert(log *models.CompletionLog) error {
	log.Date = models.DateOnly(log.Date)
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "habit_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"count", "updated_at"}),
	}).Create(log).Error
}

// FindByHabit retrieves all logs for a habit, newest first.
func (r *LogRepository) FindByHabit(habitID uint) ([]models.CompletionLog, error) {
	var logs []models.CompletionLog
	err := r.db.Where("habit_id = ?", habitID).Order("date DESC").Find(&logs).Error
	return logs, err
}

// FindByHabits retrieves all logs for the given habits, newest first.
func (r *LogRepository) FindByHabits(habitIDs []uint) ([]models.CompletionLog, error) {
	var logs []models.CompletionLog
	err := r.db.Where("habit_id IN ?", habitIDs).Order("date DESC").Find(&logs).Error
	return logs, err
}

// GetByHabitAndDate retrieves the log row for one habit on one day, or nil.
func (r *LogRepository) GetByHabitAndDate(habitID uint, date time.Time) (*models.CompletionLog, error) {
	var log models.CompletionLog
	err := r.db.Where("habit_id = ? AND date = ?", habitID, models.DateOnly(date)).
		First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// GetByHabitsAndDate retrieves all log rows for the given habits on one day.
func (r *LogRepository) GetByHabitsAndDate(habitIDs []uint, date time.Time) ([]models.CompletionLog, error) {
	var logs []models.CompletionLog
	err := r.db.Where("habit_id IN ? AND date = ?", habitIDs, models.DateOnly(date)).
		Find(&logs).Error
	return logs, err
}

// TotalForHabit returns the lifetime sum of counts for one habit.
func (r *LogRepository) TotalForHabit(habitID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.CompletionLog{}).
		Where("habit_id = ?", habitID).
		Select("COALESCE(SUM(count), 0)").
		Scan(&total).Error
	return total, err
}

// TotalAll returns the lifetime sum of counts across every habit.
func (r *LogRepository) TotalAll() (int64, error) {
	var total int64
	err := r.db.Model(&models.CompletionLog{}).
		Select("COALESCE(SUM(count), 0)").
		Scan(&total).Error
	return total, err
}
