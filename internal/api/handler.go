// Package api provides the REST handlers for habits, completion logs,
// streaks, goals and the achievement board.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmlago/habitloop/internal/cache"
	"github.com/jmlago/habitloop/internal/catalog"
	prommetrics "github.com/jmlago/habitloop/internal/metrics"
	"github.com/jmlago/habitloop/internal/models"
	"github.com/jmlago/habitloop/internal/service/achievements"
	"github.com/jmlago/habitloop/pkg/logger"
)

const dateLayout = "2006-01-02"

// HabitStore interface for habit persistence.
type HabitStore interface {
	Create(habit *models.Habit) error
	Update(habit *models.Habit) error
	GetByID(id uint) (*models.Habit, error)
	GetAll() ([]models.Habit, error)
	Archive(id uint) error
	Delete(id uint) error
}

// LogStore interface for completion-log persistence.
type LogStore interface {
	Upsert(log *models.CompletionLog) error
	FindByHabit(habitID uint) ([]models.CompletionLog, error)
}

// GoalStore interface for goal persistence.
type GoalStore interface {
	Create(goal *models.Goal) error
	GetAll() ([]models.Goal, error)
	LinkHabit(goalID, habitID uint) error
	UnlinkHabit(goalID, habitID uint) error
	GetHabitIDs(goalID uint) ([]uint, error)
}

// StreakService interface for streak operations.
type StreakService interface {
	Refresh(ctx context.Context, habitID uint, asOf time.Time) (*models.StreakState, error)
	GetState(ctx context.Context, habitID uint) (*models.StreakState, error)
	GetAllStates(ctx context.Context) ([]models.StreakState, error)
}

// AchievementService interface for achievement operations.
type AchievementService interface {
	CheckForUnlockedAchievements(ctx context.Context, trigger models.TriggerContext) ([]achievements.UnlockEvent, error)
	Catalog() []catalog.Definition
	GetUnlocked(ctx context.Context) ([]models.UnlockedAchievement, error)
	GetProgressRows(ctx context.Context) ([]models.AchievementProgress, error)
	MarkViewed(ctx context.Context, achievementIDs []string, all bool) error
}

// Handler handles API requests.
type Handler struct {
	habitRepo          HabitStore
	logRepo            LogStore
	goalRepo           GoalStore
	streakService      StreakService
	achievementService AchievementService
	boardCache         cache.Cache // nil when Redis is disabled
	boardCacheTTL      time.Duration
	log                *logger.Logger
}

// NewHandler creates a new API handler. boardCache may be nil.
func NewHandler(
	habitRepo HabitStore,
	logRepo LogStore,
	goalRepo GoalStore,
	streakService StreakService,
	achievementService AchievementService,
	boardCache cache.Cache,
	boardCacheTTL time.Duration,
	log *logger.Logger,
) *Handler {
	return &Handler{
		habitRepo:          habitRepo,
		logRepo:            logRepo,
		goalRepo:           goalRepo,
		streakService:      streakService,
		achievementService: achievementService,
		boardCache:         boardCache,
		boardCacheTTL:      boardCacheTTL,
		log:                log,
	}
}

type habitRequest struct {
	Name         string `json:"name" binding:"required"`
	Icon         string `json:"icon"`
	Color        string `json:"color"`
	MinimumCount int    `json:"minimum_count"`
	SkipDays     string `json:"skip_days"`
}

// CreateHabit creates a habit and runs an unlock check for the creation
// trigger (first_action achievements fire here).
// POST /api/v1/habits.
func (h *Handler) CreateHabit(c *gin.Context) {
	var req habitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.MinimumCount < 0 {
		h.errorResponse(c, http.StatusBadRequest, "minimum_count cannot be negative")
		return
	}

	habit := &models.Habit{
		Name:         req.Name,
		Icon:         req.Icon,
		Color:        req.Color,
		MinimumCount: req.MinimumCount,
		SkipDays:     req.SkipDays,
	}
	if err := h.habitRepo.Create(habit); err != nil {
		h.log.Error().Err(err).Msg("Failed to create habit")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to create habit")
		return
	}

	events := h.runUnlockCheck(c.Request.Context(), models.TriggerContext{
		Trigger: models.TriggerTaskCreated,
		HabitID: &habit.ID,
		At:      time.Now(),
	})

	h.log.Info().Uint("habit_id", habit.ID).Str("name", habit.Name).Msg("Habit created")

	c.JSON(http.StatusCreated, gin.H{
		"habit":    habit,
		"unlocked": events,
	})
}

// ListHabits returns all non-archived habits.
// GET /api/v1/habits.
func (h *Handler) ListHabits(c *gin.Context) {
	habits, err := h.habitRepo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list habits")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve habits")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"habits": habits,
		"total":  len(habits),
	})
}

// GetHabit returns one habit.
// GET /api/v1/habits/:id.
func (h *Handler) GetHabit(c *gin.Context) {
	id, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	habit, err := h.habitRepo.GetByID(id)
	if err != nil {
		h.errorResponse(c, http.StatusNotFound, "Habit not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// UpdateHabit updates a habit's settings and runs an unlock check for the
// customization trigger.
// PUT /api/v1/habits/:id.
func (h *Handler) UpdateHabit(c *gin.Context) {
	id, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	habit, err := h.habitRepo.GetByID(id)
	if err != nil {
		h.errorResponse(c, http.StatusNotFound, "Habit not found")
		return
	}

	var req habitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.MinimumCount < 0 {
		h.errorResponse(c, http.StatusBadRequest, "minimum_count cannot be negative")
		return
	}

	habit.Name = req.Name
	habit.Icon = req.Icon
	habit.Color = req.Color
	habit.MinimumCount = req.MinimumCount
	habit.SkipDays = req.SkipDays
	if err := h.habitRepo.Update(habit); err != nil {
		h.log.Error().Err(err).Uint("habit_id", id).Msg("Failed to update habit")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to update habit")
		return
	}

	events := h.runUnlockCheck(c.Request.Context(), models.TriggerContext{
		Trigger: models.TriggerTaskCustomized,
		HabitID: &habit.ID,
		At:      time.Now(),
	})

	c.JSON(http.StatusOK, gin.H{
		"habit":    habit,
		"unlocked": events,
	})
}

// ArchiveHabit archives a habit, keeping its history.
// POST /api/v1/habits/:id/archive.
func (h *Handler) ArchiveHabit(c *gin.Context) {
	id, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.habitRepo.GetByID(id); err != nil {
		h.errorResponse(c, http.StatusNotFound, "Habit not found")
		return
	}
	if err := h.habitRepo.Archive(id); err != nil {
		h.log.Error().Err(err).Uint("habit_id", id).Msg("Failed to archive habit")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to archive habit")
		return
	}
	h.log.Info().Uint("habit_id", id).Msg("Habit archived")
	c.JSON(http.StatusOK, gin.H{"archived": true})
}

// DeleteHabit deletes a habit together with its logs and streak state.
// DELETE /api/v1/habits/:id.
func (h *Handler) DeleteHabit(c *gin.Context) {
	id, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.habitRepo.Delete(id); err != nil {
		h.log.Error().Err(err).Uint("habit_id", id).Msg("Failed to delete habit")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to delete habit")
		return
	}
	h.log.Info().Uint("habit_id", id).Msg("Habit deleted")
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type logRequest struct {
	Date  string `json:"date"` // YYYY-MM-DD, defaults to today
	Count int    `json:"count"`
	At    string `json:"at"` // RFC3339 event time, defaults to now
}

// LogCompletion upserts the completion count for one habit on one day,
// refreshes the habit's streak and runs the unlock pipeline. The response
// carries the refreshed streak and any achievements earned by this action.
// POST /api/v1/habits/:id/logs.
func (h *Handler) LogCompletion(c *gin.Context) {
	id, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	habit, err := h.habitRepo.GetByID(id)
	if err != nil {
		h.errorResponse(c, http.StatusNotFound, "Habit not found")
		return
	}

	var req logRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Count < 0 {
		h.errorResponse(c, http.StatusBadRequest, "count cannot be negative")
		return
	}

	at := time.Now()
	if req.At != "" {
		parsed, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid at timestamp: %s", req.At))
			return
		}
		at = parsed
	}

	date := models.DateOnly(at)
	if req.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.Date))
			return
		}
		date = models.DateOnly(parsed)
	}

	entry := &models.CompletionLog{HabitID: habit.ID, Date: date, Count: req.Count}
	if err := h.logRepo.Upsert(entry); err != nil {
		h.log.Error().Err(err).Uint("habit_id", habit.ID).Msg("Failed to upsert completion log")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to record completion")
		return
	}
	prommetrics.RecordCompletionLogged(models.TriggerTaskCompletion)

	ctx := c.Request.Context()
	state, err := h.streakService.Refresh(ctx, habit.ID, time.Now())
	if err != nil {
		h.log.Error().Err(err).Uint("habit_id", habit.ID).Msg("Failed to refresh streak")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to refresh streak")
		return
	}

	events := h.runUnlockCheck(ctx, models.TriggerContext{
		Trigger: models.TriggerTaskCompletion,
		HabitID: &habit.ID,
		Date:    &date,
		At:      at,
	})

	h.log.Info().
		Uint("habit_id", habit.ID).
		Time("date", date).
		Int("count", req.Count).
		Int("unlocked", len(events)).
		Msg("Completion logged")

	c.JSON(http.StatusOK, gin.H{
		"log":      entry,
		"streak":   state,
		"unlocked": events,
	})
}

// ListLogs returns a habit's completion history, newest first.
// GET /api/v1/habits/:id/logs.
func (h *Handler) ListLogs(c *gin.Context) {
	id, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	logs, err := h.logRepo.FindByHabit(id)
	if err != nil {
		h.log.Error().Err(err).Uint("habit_id", id).Msg("Failed to list logs")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": len(logs),
	})
}

// GetStreak returns the persisted streak state for one habit.
// GET /api/v1/habits/:id/streak.
func (h *Handler) GetStreak(c *gin.Context) {
	id, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	state, err := h.streakService.GetState(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Uint("habit_id", id).Msg("Failed to get streak state")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve streak")
		return
	}
	if state == nil {
		h.errorResponse(c, http.StatusNotFound, "No streak state for habit")
		return
	}
	c.JSON(http.StatusOK, gin.H{"streak": state})
}

// ListStreaks returns streak state for every habit.
// GET /api/v1/streaks.
func (h *Handler) ListStreaks(c *gin.Context) {
	states, err := h.streakService.GetAllStates(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list streak states")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve streaks")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"streaks": states,
		"total":   len(states),
	})
}

type goalRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateGoal creates a goal.
// POST /api/v1/goals.
func (h *Handler) CreateGoal(c *gin.Context) {
	var req goalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	goal := &models.Goal{Name: req.Name}
	if err := h.goalRepo.Create(goal); err != nil {
		h.log.Error().Err(err).Msg("Failed to create goal")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to create goal")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// ListGoals returns every goal with its linked habit IDs.
// GET /api/v1/goals.
func (h *Handler) ListGoals(c *gin.Context) {
	goals, err := h.goalRepo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list goals")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve goals")
		return
	}

	type goalWithHabits struct {
		models.Goal
		HabitIDs []uint `json:"habit_ids"`
	}
	out := make([]goalWithHabits, 0, len(goals))
	for _, g := range goals {
		ids, err := h.goalRepo.GetHabitIDs(g.ID)
		if err != nil {
			h.log.Error().Err(err).Uint("goal_id", g.ID).Msg("Failed to load goal links")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve goals")
			return
		}
		out = append(out, goalWithHabits{Goal: g, HabitIDs: ids})
	}
	c.JSON(http.StatusOK, gin.H{
		"goals": out,
		"total": len(out),
	})
}

// LinkGoalHabit links a habit to a goal. Re-linking is a no-op.
// POST /api/v1/goals/:id/habits/:habitId.
func (h *Handler) LinkGoalHabit(c *gin.Context) {
	goalID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	habitID, err := h.parseID(c, "habitId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.habitRepo.GetByID(habitID); err != nil {
		h.errorResponse(c, http.StatusNotFound, "Habit not found")
		return
	}
	if err := h.goalRepo.LinkHabit(goalID, habitID); err != nil {
		h.log.Error().Err(err).Uint("goal_id", goalID).Uint("habit_id", habitID).Msg("Failed to link habit to goal")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to link habit")
		return
	}
	c.JSON(http.StatusOK, gin.H{"linked": true})
}

// UnlinkGoalHabit removes a habit from a goal.
// DELETE /api/v1/goals/:id/habits/:habitId.
func (h *Handler) UnlinkGoalHabit(c *gin.Context) {
	goalID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	habitID, err := h.parseID(c, "habitId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.goalRepo.UnlinkHabit(goalID, habitID); err != nil {
		h.log.Error().Err(err).Uint("goal_id", goalID).Uint("habit_id", habitID).Msg("Failed to unlink habit from goal")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to unlink habit")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unlinked": true})
}

// runUnlockCheck runs the pipeline for a trigger and drops the cached board,
// whose progress rows may have moved. A pipeline failure never fails the
// user action.
func (h *Handler) runUnlockCheck(ctx context.Context, trigger models.TriggerContext) []achievements.UnlockEvent {
	events, err := h.achievementService.CheckForUnlockedAchievements(ctx, trigger)
	if err != nil {
		h.log.Error().Err(err).Str("trigger", trigger.Trigger).Msg("Unlock check failed")
		return nil
	}
	h.dropBoardCache(ctx)
	if events == nil {
		events = []achievements.UnlockEvent{}
	}
	return events
}

// parseID extracts and validates a numeric URL parameter.
func (h *Handler) parseID(c *gin.Context, name string) (uint, error) {
	idStr := c.Param(name)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, idStr)
	}
	return uint(id), nil
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
