package achievements

import (
	"fmt"

	"github.com/jmlago/habitloop/internal/models"
)

// ProgressStore interface for achievement progress persistence.
type ProgressStore interface {
	GetProgress(achievementID string) (*models.AchievementProgress, error)
	GetAllProgress() ([]models.AchievementProgress, error)
	UpdateProgress(achievementID string, currentValue, targetValue int) (*models.AchievementProgress, error)
	DeleteProgress(achievementID string) error
}

// Tracker persists partial progress for locked, progressively-accumulating
// achievements. Progress is advisory: it exists so a UI can show "37/100",
// and its absence never blocks evaluation.
type Tracker struct {
	store ProgressStore
}

// NewTracker creates a progress tracker.
func NewTracker(store ProgressStore) *Tracker {
	return &Tracker{store: store}
}

// Get returns the progress row for an achievement, or nil.
func (t *Tracker) Get(achievementID string) (*models.AchievementProgress, error) {
	return t.store.GetProgress(achievementID)
}

// Set upserts a progress row with an absolute current value.
func (t *Tracker) Set(achievementID string, currentValue, targetValue int) (*models.AchievementProgress, error) {
	return t.store.UpdateProgress(achievementID, currentValue, targetValue)
}

// Increment bumps a per-event counter by one, creating the row on demand,
// and returns the updated progress.
func (t *Tracker) Increment(achievementID string, targetValue int) (*models.AchievementProgress, error) {
	existing, err := t.store.GetProgress(achievementID)
	if err != nil {
		return nil, fmt.Errorf("failed to read progress for %s: %w", achievementID, err)
	}
	current := 1
	if existing != nil {
		current = existing.CurrentValue + 1
	}
	return t.store.UpdateProgress(achievementID, current, targetValue)
}

// Clear deletes a progress row. Called exactly once, immediately after the
// achievement unlocks.
func (t *Tracker) Clear(achievementID string) error {
	return t.store.DeleteProgress(achievementID)
}
