package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/jmlago/habitloop/internal/catalog"
	"github.com/jmlago/habitloop/internal/config"
	"github.com/jmlago/habitloop/internal/models"
	"github.com/jmlago/habitloop/internal/repository"
	"github.com/jmlago/habitloop/internal/service/achievements"
	"github.com/jmlago/habitloop/internal/service/streaks"
	"github.com/jmlago/habitloop/pkg/logger"
)

func TestBuildCronExpression(t *testing.T) {
	tests := []struct {
		name        string
		time        string
		expected    string
		expectError bool
	}{
		{"Midnight-ish", "00:05", "5 0 * * *", false},
		{"Morning", "06:30", "30 6 * * *", false},
		{"Evening", "23:59", "59 23 * * *", false},
		{"Missing minutes", "6", "", true},
		{"Invalid hour", "25:00", "", true},
		{"Invalid minute", "06:61", "", true},
		{"Garbage", "noon", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := buildCronExpression(tt.time)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if expr != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, expr)
			}
		})
	}
}

func TestStart_Disabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.Scheduler.Enabled = false
	log := logger.New("error", "json", "stdout")
	svc := NewService(cfg, nil, nil, nil, log)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start with disabled scheduler failed: %v", err)
	}
	svc.Stop()
}

func TestStart_InvalidTimezone(t *testing.T) {
	cfg := &config.Config{}
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.RolloverTime = "00:05"
	cfg.Scheduler.Timezone = "Mars/Olympus_Mons"
	log := logger.New("error", "json", "stdout")
	svc := NewService(cfg, nil, nil, nil, log)

	if err := svc.Start(); err == nil {
		t.Error("Expected error for invalid timezone")
	}
}

// TestRunRollover exercises the whole rollover path against an in-memory
// database: streaks decay for missed days and the unlock check runs on the
// synthetic day_rollover trigger.
func TestRunRollover(t *testing.T) {
	log := logger.New("error", "json", "stdout")

	dbCfg := &config.DatabaseConfig{Driver: "sqlite"}
	dbCfg.SQLite.Path = ":memory:"
	db, err := repository.NewDB(dbCfg, log)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	habitRepo := repository.NewHabitRepository(db)
	logRepo := repository.NewLogRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	goalRepo := repository.NewGoalRepository(db)

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("Load catalog failed: %v", err)
	}

	streakService := streaks.NewService(habitRepo, logRepo, streakRepo, 1, log)
	achievementService := achievements.NewService(cat, achievementRepo, habitRepo, logRepo, streakRepo, goalRepo, log)

	cfg := &config.Config{}
	svc := NewService(cfg, streakService, achievementService, habitRepo, log)

	habit := &models.Habit{Name: "Read"}
	if err := habitRepo.Create(habit); err != nil {
		t.Fatalf("Create habit failed: %v", err)
	}

	// Build a three-day streak, then roll over days later.
	for _, d := range []string{"2026-08-25", "2026-08-26", "2026-08-27"} {
		date, _ := time.Parse("2006-01-02", d)
		if err := logRepo.Upsert(&models.CompletionLog{HabitID: habit.ID, Date: date, Count: 1}); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	asOf, _ := time.Parse("2006-01-02", "2026-08-27")
	if _, err := streakService.Refresh(context.Background(), habit.ID, asOf); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	rollover, _ := time.Parse("2006-01-02", "2026-08-30")
	svc.RunRollover(context.Background(), rollover)

	state, err := streakRepo.GetByHabitID(habit.ID)
	if err != nil {
		t.Fatalf("GetByHabitID failed: %v", err)
	}
	if state.CurrentStreak != 0 {
		t.Errorf("Expected rollover to decay the streak, got %d", state.CurrentStreak)
	}
	if state.BestStreak != 3 {
		t.Errorf("Expected best streak 3 preserved, got %d", state.BestStreak)
	}
}
