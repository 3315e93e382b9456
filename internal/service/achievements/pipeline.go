package achievements

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jmlago/habitloop/internal/catalog"
	prommetrics "github.com/jmlago/habitloop/internal/metrics"
	"github.com/jmlago/habitloop/internal/models"
	"github.com/jmlago/habitloop/internal/repository"
	"github.com/jmlago/habitloop/pkg/logger"
)

// AchievementStore interface for unlocked-achievement persistence.
// RecordUnlock must be idempotent on achievement ID: a second call (or a
// concurrent one) returns the existing row with isNew false.
type AchievementStore interface {
	ProgressStore
	GetAllUnlocked() ([]models.UnlockedAchievement, error)
	GetUnlockedIDs() (map[string]bool, error)
	RecordUnlock(achievementID string, triggeringHabitID *uint, metadata json.RawMessage) (*models.UnlockedAchievement, bool, error)
	MarkAsViewed(achievementIDs []string) error
	MarkAllAsViewed() error
}

// unlockedCache is the process-wide, lazily populated set of unlocked
// achievement IDs. All reads go through get, which populates on first use;
// every mutation path (our own unlocks, external bulk imports) must call
// Invalidate. Concurrent checks may race on a stale snapshot; that is safe
// only because RecordUnlock is idempotent.
type unlockedCache struct {
	mu     sync.Mutex
	loaded bool
	ids    map[string]bool
	load   func() (map[string]bool, error)
}

func (c *unlockedCache) get() (map[string]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		ids, err := c.load()
		if err != nil {
			return nil, err
		}
		c.ids = ids
		c.loaded = true
	}
	snapshot := make(map[string]bool, len(c.ids))
	for id := range c.ids {
		snapshot[id] = true
	}
	return snapshot, nil
}

// Invalidate drops the cached set; the next read reloads from storage.
func (c *unlockedCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.ids = nil
}

// Service is the unlock pipeline: it filters candidates, runs their
// evaluators, records unlocks exactly once and notifies subscribers.
type Service struct {
	catalog         *catalog.Catalog
	achievementRepo AchievementStore
	habitRepo       HabitStore
	logRepo         LogStore
	streakRepo      StreakStore
	goalRepo        GoalStore
	tracker         *Tracker
	unlocked        *unlockedCache
	listeners       *listenerSet
	log             *logger.Logger
}

// NewService creates a new achievement service.
func NewService(
	cat *catalog.Catalog,
	achievementRepo *repository.AchievementRepository,
	habitRepo *repository.HabitRepository,
	logRepo *repository.LogRepository,
	streakRepo *repository.StreakRepository,
	goalRepo *repository.GoalRepository,
	log *logger.Logger,
) *Service {
	return newService(cat, achievementRepo, habitRepo, logRepo, streakRepo, goalRepo, log)
}

// NewServiceWithInterfaces creates a new achievement service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	cat *catalog.Catalog,
	achievementRepo AchievementStore,
	habitRepo HabitStore,
	logRepo LogStore,
	streakRepo StreakStore,
	goalRepo GoalStore,
	log *logger.Logger,
) *Service {
	return newService(cat, achievementRepo, habitRepo, logRepo, streakRepo, goalRepo, log)
}

func newService(
	cat *catalog.Catalog,
	achievementRepo AchievementStore,
	habitRepo HabitStore,
	logRepo LogStore,
	streakRepo StreakStore,
	goalRepo GoalStore,
	log *logger.Logger,
) *Service {
	s := &Service{
		catalog:         cat,
		achievementRepo: achievementRepo,
		habitRepo:       habitRepo,
		logRepo:         logRepo,
		streakRepo:      streakRepo,
		goalRepo:        goalRepo,
		tracker:         NewTracker(achievementRepo),
		listeners:       newListenerSet(),
		log:             log,
	}
	s.unlocked = &unlockedCache{load: achievementRepo.GetUnlockedIDs}
	return s
}

// Subscribe registers an unlock listener and returns an unsubscribe function.
func (s *Service) Subscribe(l Listener) func() {
	return s.listeners.add(l)
}

// InvalidateCache drops the unlocked-ids cache. External writers that insert
// unlock rows directly (e.g. a bulk data import) must call this.
func (s *Service) InvalidateCache() {
	s.unlocked.Invalidate()
}

// CheckForUnlockedAchievements evaluates every locked, prerequisite-satisfied
// achievement against current state and the trigger, records new unlocks
// exactly once, clears their progress rows and notifies subscribers with the
// batch. A storage failure at the outer read surfaces as an error with no
// unlocks; a single evaluator failure only skips that candidate.
//
//nolint:revive // ctx reserved for future context-aware storage operations
func (s *Service) CheckForUnlockedAchievements(ctx context.Context, trigger models.TriggerContext) ([]UnlockEvent, error) {
	start := time.Now()

	unlockedIDs, err := s.unlocked.get()
	if err != nil {
		prommetrics.RecordUnlockCheck(trigger.Trigger, "error")
		return nil, fmt.Errorf("failed to load unlocked achievement ids: %w", err)
	}

	world := newWorldView(s.habitRepo, s.logRepo, s.streakRepo, s.goalRepo, trigger.EffectiveDate())

	var events []UnlockEvent
	newlyUnlocked := make(map[string]bool)
	observedTotals := make(map[catalog.ConditionKind]int)

	for _, def := range s.catalog.All() {
		if unlockedIDs[def.ID] || newlyUnlocked[def.ID] {
			continue
		}
		// A prerequisite satisfied earlier in this same pass counts: tier
		// ladders are listed lowest first so one big backfill can unlock
		// several tiers in one batch.
		if def.PrerequisiteID != "" && !unlockedIDs[def.PrerequisiteID] && !newlyUnlocked[def.PrerequisiteID] {
			continue
		}

		res, evalErr := evaluate(def, world, trigger)
		if evalErr != nil {
			prommetrics.RecordEvaluatorError(string(def.Condition.Type))
			s.log.Error().
				Err(evalErr).
				Str("achievement", def.ID).
				Str("kind", string(def.Condition.Type)).
				Msg("Evaluator failed; candidate skipped this round")
			continue
		}

		if res.hasObserved {
			if res.observedTotal > observedTotals[def.Condition.Type] {
				observedTotals[def.Condition.Type] = res.observedTotal
			}
		}

		unlockedNow := res.unlocked
		if res.countsEvent {
			progress, perr := s.tracker.Increment(def.ID, def.Condition.Value)
			if perr != nil {
				s.log.Error().Err(perr).Str("achievement", def.ID).Msg("Failed to update event counter")
				continue
			}
			unlockedNow = progress.CurrentValue >= def.Condition.Value
		}

		if !unlockedNow {
			continue
		}

		record, isNew, recErr := s.achievementRepo.RecordUnlock(def.ID, trigger.HabitID, nil)
		if recErr != nil {
			s.log.Error().Err(recErr).Str("achievement", def.ID).Msg("Failed to record unlock")
			continue
		}
		if err := s.tracker.Clear(def.ID); err != nil {
			s.log.Error().Err(err).Str("achievement", def.ID).Msg("Failed to clear progress after unlock")
		}

		newlyUnlocked[def.ID] = true
		if isNew {
			prommetrics.RecordAchievementUnlocked(def.Category, def.Rarity)
			s.log.Info().
				Str("achievement", def.ID).
				Str("name", def.Name).
				Str("rarity", def.Rarity).
				Msg("Achievement unlocked")
			events = append(events, UnlockEvent{Achievement: def, Record: *record, IsNew: true})
		}
	}

	s.shareLadderProgress(unlockedIDs, newlyUnlocked, observedTotals)

	if len(newlyUnlocked) > 0 {
		s.unlocked.Invalidate()
	}
	if len(events) > 0 {
		s.listeners.notify(events)
	}

	prommetrics.RecordUnlockCheck(trigger.Trigger, "success")
	prommetrics.ObserveUnlockCheckDuration(time.Since(start).Seconds())
	return events, nil
}

// shareLadderProgress pushes the completion totals observed during a pass
// onto the progress rows of still-locked tiers of the same ladder. Kept out
// of the evaluators so they stay pure reads.
func (s *Service) shareLadderProgress(unlockedIDs, newlyUnlocked map[string]bool, observed map[catalog.ConditionKind]int) {
	for kind, total := range observed {
		for _, sibling := range s.catalog.SiblingsOfKind(kind) {
			if unlockedIDs[sibling.ID] || newlyUnlocked[sibling.ID] {
				continue
			}
			if _, err := s.tracker.Set(sibling.ID, total, sibling.Condition.Value); err != nil {
				s.log.Error().Err(err).Str("achievement", sibling.ID).Msg("Failed to update ladder progress")
			}
		}
	}
}

// MarkViewed marks the given unlocked achievements as viewed; with all set it
// marks every unlocked achievement. Re-marking is a no-op.
//
//nolint:revive // ctx reserved for future context-aware storage operations
func (s *Service) MarkViewed(ctx context.Context, achievementIDs []string, all bool) error {
	if all {
		return s.achievementRepo.MarkAllAsViewed()
	}
	if len(achievementIDs) == 0 {
		return nil
	}
	return s.achievementRepo.MarkAsViewed(achievementIDs)
}

// Catalog returns the achievement definitions in catalog order.
func (s *Service) Catalog() []catalog.Definition {
	return s.catalog.All()
}

// GetUnlocked returns all unlocked achievements, newest first.
//
//nolint:revive // ctx reserved for future context-aware storage operations
func (s *Service) GetUnlocked(ctx context.Context) ([]models.UnlockedAchievement, error) {
	return s.achievementRepo.GetAllUnlocked()
}

// GetProgressRows returns every persisted progress row.
//
//nolint:revive // ctx reserved for future context-aware storage operations
func (s *Service) GetProgressRows(ctx context.Context) ([]models.AchievementProgress, error) {
	return s.achievementRepo.GetAllProgress()
}
