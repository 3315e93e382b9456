// Package scheduler runs the daily rollover job that keeps streaks and
// achievements current without user activity.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmlago/habitloop/internal/config"
	prommetrics "github.com/jmlago/habitloop/internal/metrics"
	"github.com/jmlago/habitloop/internal/models"
	"github.com/jmlago/habitloop/internal/service/achievements"
	"github.com/jmlago/habitloop/internal/service/streaks"
	"github.com/jmlago/habitloop/pkg/logger"
)

// HabitCounter reports the number of active habits for the gauge refresh.
type HabitCounter interface {
	CountActive() (int64, error)
}

// Service handles the daily rollover: shortly after midnight it recomputes
// every streak (so streaks broken by a missed day decay) and runs an unlock
// check for date- and streak-sensitive achievements.
type Service struct {
	config             *config.Config
	streakService      *streaks.Service
	achievementService *achievements.Service
	habitCounter       HabitCounter
	log                *logger.Logger
	cron               *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.Config,
	streakService *streaks.Service,
	achievementService *achievements.Service,
	habitCounter HabitCounter,
	log *logger.Logger,
) *Service {
	return &Service{
		config:             cfg,
		streakService:      streakService,
		achievementService: achievementService,
		habitCounter:       habitCounter,
		log:                log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := time.LoadLocation(s.config.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	cronExpr, err := buildCronExpression(s.config.Scheduler.RolloverTime)
	if err != nil {
		return fmt.Errorf("failed to build cron expression: %w", err)
	}

	_, err = s.cron.AddFunc(cronExpr, func() {
		s.RunRollover(context.Background(), time.Now().In(location))
	})
	if err != nil {
		return fmt.Errorf("failed to register rollover job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", cronExpr).
		Str("timezone", s.config.Scheduler.Timezone).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression turns an "HH:MM" rollover time into a daily cron spec.
func buildCronExpression(rolloverTime string) (string, error) {
	parts := strings.Split(rolloverTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", rolloverTime)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// RunRollover executes one rollover pass for the given instant. Exported so
// an operator endpoint or test can trigger it outside the cron schedule.
func (s *Service) RunRollover(ctx context.Context, now time.Time) {
	start := time.Now()
	s.log.Info().Time("as_of", now).Msg("Running daily rollover job")

	if err := s.streakService.RefreshAll(ctx, now); err != nil {
		s.log.Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("Rollover streak refresh failed")
		prommetrics.RecordRolloverJobRun("error")
		return
	}

	trigger := models.TriggerContext{
		Trigger: models.TriggerDayRollover,
		At:      now,
	}
	events, err := s.achievementService.CheckForUnlockedAchievements(ctx, trigger)
	if err != nil {
		s.log.Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("Rollover unlock check failed")
		prommetrics.RecordRolloverJobRun("error")
		return
	}

	s.refreshGauges(ctx)

	prommetrics.RecordRolloverJobRun("success")
	s.log.Info().
		Int("unlocked", len(events)).
		Dur("duration", time.Since(start)).
		Msg("Daily rollover job completed successfully")
}

// refreshGauges updates the slow-moving gauges once a day.
func (s *Service) refreshGauges(ctx context.Context) {
	if count, err := s.habitCounter.CountActive(); err == nil {
		prommetrics.SetActiveHabits(int(count))
	} else {
		s.log.Error().Err(err).Msg("Failed to count active habits")
	}

	if unlocked, err := s.achievementService.GetUnlocked(ctx); err == nil {
		prommetrics.SetUnlockedAchievements(len(unlocked))
	} else {
		s.log.Error().Err(err).Msg("Failed to count unlocked achievements")
	}
}
