package achievements

import (
	"time"

	"github.com/jmlago/habitloop/internal/models"
)

// HabitStore interface for habit lookups.
type HabitStore interface {
	GetAll() ([]models.Habit, error)
	GetAllIncludingArchived() ([]models.Habit, error)
	GetOldest() (*models.Habit, error)
}

// LogStore interface for completion-log lookups.
type LogStore interface {
	FindByHabit(habitID uint) ([]models.CompletionLog, error)
}

// StreakStore interface for streak-state lookups.
type StreakStore interface {
	GetAll() ([]models.StreakState, error)
}

// GoalStore interface for goal and goal-habit-link lookups.
type GoalStore interface {
	GetAll() ([]models.Goal, error)
	GetHabitIDs(goalID uint) ([]uint, error)
}

// worldView is the read-only snapshot evaluators run against. Data is loaded
// lazily, once per pipeline run; evaluators for twenty-odd achievements share
// the same loads.
type worldView struct {
	habitRepo  HabitStore
	logRepo    LogStore
	streakRepo StreakStore
	goalRepo   GoalStore

	today time.Time

	habits     []models.Habit
	habitsSet  bool
	allHabits  []models.Habit
	allSet     bool
	logs       map[uint][]models.CompletionLog
	streaks    map[uint]models.StreakState
	streaksSet bool
	goals      []models.Goal
	goalsSet   bool
	goalLinks  map[uint][]uint
}

func newWorldView(habitRepo HabitStore, logRepo LogStore, streakRepo StreakStore, goalRepo GoalStore, today time.Time) *worldView {
	return &worldView{
		habitRepo:  habitRepo,
		logRepo:    logRepo,
		streakRepo: streakRepo,
		goalRepo:   goalRepo,
		today:      models.DateOnly(today),
		logs:       make(map[uint][]models.CompletionLog),
		goalLinks:  make(map[uint][]uint),
	}
}

// Today returns the calendar day the check runs against.
func (w *worldView) Today() time.Time {
	return w.today
}

// ActiveHabits returns all non-archived habits.
func (w *worldView) ActiveHabits() ([]models.Habit, error) {
	if !w.habitsSet {
		habits, err := w.habitRepo.GetAll()
		if err != nil {
			return nil, err
		}
		w.habits = habits
		w.habitsSet = true
	}
	return w.habits, nil
}

// AllHabits returns every habit, archived included.
func (w *worldView) AllHabits() ([]models.Habit, error) {
	if !w.allSet {
		habits, err := w.habitRepo.GetAllIncludingArchived()
		if err != nil {
			return nil, err
		}
		w.allHabits = habits
		w.allSet = true
	}
	return w.allHabits, nil
}

// OldestHabit returns the earliest-created habit, or nil when none exist.
func (w *worldView) OldestHabit() (*models.Habit, error) {
	habits, err := w.AllHabits()
	if err != nil || len(habits) == 0 {
		return nil, err
	}
	oldest := &habits[0]
	for i := range habits {
		if habits[i].CreatedAt.Before(oldest.CreatedAt) {
			oldest = &habits[i]
		}
	}
	return oldest, nil
}

// LogsFor returns a habit's full log history, newest first.
func (w *worldView) LogsFor(habitID uint) ([]models.CompletionLog, error) {
	if logs, ok := w.logs[habitID]; ok {
		return logs, nil
	}
	logs, err := w.logRepo.FindByHabit(habitID)
	if err != nil {
		return nil, err
	}
	w.logs[habitID] = logs
	return logs, nil
}

// QualifyingDates returns the set of days a habit has a log with at least
// minCount completions.
func (w *worldView) QualifyingDates(habitID uint, minCount int) (map[time.Time]bool, error) {
	logs, err := w.LogsFor(habitID)
	if err != nil {
		return nil, err
	}
	dates := make(map[time.Time]bool, len(logs))
	for i := range logs {
		if logs[i].Count >= minCount {
			dates[models.DateOnly(logs[i].Date)] = true
		}
	}
	return dates, nil
}

// TotalFor returns a habit's lifetime sum of log counts.
func (w *worldView) TotalFor(habitID uint) (int, error) {
	logs, err := w.LogsFor(habitID)
	if err != nil {
		return 0, err
	}
	total := 0
	for i := range logs {
		total += logs[i].Count
	}
	return total, nil
}

// StreakFor returns the streak state for a habit; the zero value when the
// habit has no state yet.
func (w *worldView) StreakFor(habitID uint) (models.StreakState, error) {
	if err := w.loadStreaks(); err != nil {
		return models.StreakState{}, err
	}
	return w.streaks[habitID], nil
}

// Streaks returns streak state for every habit.
func (w *worldView) Streaks() (map[uint]models.StreakState, error) {
	if err := w.loadStreaks(); err != nil {
		return nil, err
	}
	return w.streaks, nil
}

func (w *worldView) loadStreaks() error {
	if w.streaksSet {
		return nil
	}
	states, err := w.streakRepo.GetAll()
	if err != nil {
		return err
	}
	w.streaks = make(map[uint]models.StreakState, len(states))
	for _, st := range states {
		w.streaks[st.HabitID] = st
	}
	w.streaksSet = true
	return nil
}

// Goals returns every goal.
func (w *worldView) Goals() ([]models.Goal, error) {
	if !w.goalsSet {
		goals, err := w.goalRepo.GetAll()
		if err != nil {
			return nil, err
		}
		w.goals = goals
		w.goalsSet = true
	}
	return w.goals, nil
}

// GoalHabitIDs returns the habits linked to a goal.
func (w *worldView) GoalHabitIDs(goalID uint) ([]uint, error) {
	if ids, ok := w.goalLinks[goalID]; ok {
		return ids, nil
	}
	ids, err := w.goalRepo.GetHabitIDs(goalID)
	if err != nil {
		return nil, err
	}
	w.goalLinks[goalID] = ids
	return ids, nil
}
