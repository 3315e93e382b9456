package streaks

import (
	"context"
	"fmt"
	"time"

	prommetrics "github.com/jmlago/habitloop/internal/metrics"
	"github.com/jmlago/habitloop/internal/models"
	"github.com/jmlago/habitloop/internal/repository"
	"github.com/jmlago/habitloop/pkg/logger"
)

// HabitStore interface for habit lookups.
type HabitStore interface {
	GetByID(id uint) (*models.Habit, error)
	GetAll() ([]models.Habit, error)
}

// LogStore interface for completion-log lookups.
type LogStore interface {
	FindByHabit(habitID uint) ([]models.CompletionLog, error)
}

// StreakStore interface for streak-state persistence. CreateOrUpdate is an
// upsert that enforces best = max(existing best, incoming) on the store side.
type StreakStore interface {
	GetAll() ([]models.StreakState, error)
	GetByHabitID(habitID uint) (*models.StreakState, error)
	CreateOrUpdate(habitID uint, currentStreak, bestStreak int, lastCompletionDate, streakStartDate *time.Time) (*models.StreakState, error)
}

// Service recomputes and persists streak state for habits.
type Service struct {
	habitRepo           HabitStore
	logRepo             LogStore
	streakRepo          StreakStore
	defaultMinimumCount int
	log                 *logger.Logger
}

// NewService creates a new streak service.
func NewService(
	habitRepo *repository.HabitRepository,
	logRepo *repository.LogRepository,
	streakRepo *repository.StreakRepository,
	defaultMinimumCount int,
	log *logger.Logger,
) *Service {
	return &Service{
		habitRepo:           habitRepo,
		logRepo:             logRepo,
		streakRepo:          streakRepo,
		defaultMinimumCount: defaultMinimumCount,
		log:                 log,
	}
}

// NewServiceWithInterfaces creates a streak service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	habitRepo HabitStore,
	logRepo LogStore,
	streakRepo StreakStore,
	defaultMinimumCount int,
	log *logger.Logger,
) *Service {
	return &Service{
		habitRepo:           habitRepo,
		logRepo:             logRepo,
		streakRepo:          streakRepo,
		defaultMinimumCount: defaultMinimumCount,
		log:                 log,
	}
}

// Refresh recomputes a habit's streak state from its full log history as of
// the given date and persists it. The persisted best streak only ever grows,
// so replaying or backfilling history in any order is safe.
//
//nolint:revive // ctx reserved for future context-aware storage operations
func (s *Service) Refresh(ctx context.Context, habitID uint, asOf time.Time) (*models.StreakState, error) {
	habit, err := s.habitRepo.GetByID(habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load habit %d: %w", habitID, err)
	}

	logs, err := s.logRepo.FindByHabit(habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load logs for habit %d: %w", habitID, err)
	}

	minimum := habit.QualifyingCount()
	if habit.MinimumCount == 0 && s.defaultMinimumCount > 0 {
		minimum = s.defaultMinimumCount
	}

	result := ComputeStreak(logs, asOf, minimum, habit.SkipWeekdays())

	best := result.BestRun
	if result.CurrentStreak > best {
		best = result.CurrentStreak
	}

	state, err := s.streakRepo.CreateOrUpdate(
		habitID,
		result.CurrentStreak,
		best,
		result.LastCompletionDate,
		result.StreakStartDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to persist streak for habit %d: %w", habitID, err)
	}

	prommetrics.RecordStreakRecomputed()
	prommetrics.SetBestStreak(habit.Name, state.BestStreak)

	s.log.Debug().
		Uint("habit_id", habitID).
		Int("current_streak", state.CurrentStreak).
		Int("best_streak", state.BestStreak).
		Msg("Streak state refreshed")

	return state, nil
}

// RefreshAll recomputes streak state for every non-archived habit. Used by
// the daily rollover job so at-risk streaks decay without user action.
func (s *Service) RefreshAll(ctx context.Context, asOf time.Time) error {
	habits, err := s.habitRepo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}

	for _, habit := range habits {
		if _, err := s.Refresh(ctx, habit.ID, asOf); err != nil {
			s.log.Error().Err(err).Uint("habit_id", habit.ID).Msg("Failed to refresh streak")
			continue
		}
	}
	return nil
}

// GetState returns the persisted streak state for a habit, or nil when the
// habit has never been completed.
//
//nolint:revive // ctx reserved for future context-aware storage operations
func (s *Service) GetState(ctx context.Context, habitID uint) (*models.StreakState, error) {
	return s.streakRepo.GetByHabitID(habitID)
}

// GetAllStates returns the persisted streak state for every habit.
//
//nolint:revive // ctx reserved for future context-aware storage operations
func (s *Service) GetAllStates(ctx context.Context) ([]models.StreakState, error) {
	return s.streakRepo.GetAll()
}
