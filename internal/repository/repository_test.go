package repository

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jmlago/habitloop/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// A single connection keeps the in-memory database alive for the test.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	gdb.Exec("PRAGMA foreign_keys = ON")

	db := &DB{DB: gdb, driver: "sqlite"}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testDay(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestLogRepository_UpsertNaturalKey(t *testing.T) {
	db := setupTestDB(t)
	habits := NewHabitRepository(db)
	logs := NewLogRepository(db)

	habit := &models.Habit{Name: "Read"}
	if err := habits.Create(habit); err != nil {
		t.Fatalf("Create habit failed: %v", err)
	}

	date := testDay("2026-08-29")
	if err := logs.Upsert(&models.CompletionLog{HabitID: habit.ID, Date: date, Count: 1}); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}
	if err := logs.Upsert(&models.CompletionLog{HabitID: habit.ID, Date: date, Count: 3}); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	all, err := logs.FindByHabit(habit.ID)
	if err != nil {
		t.Fatalf("FindByHabit failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected one row per (habit, date), got %d", len(all))
	}
	if all[0].Count != 3 {
		t.Errorf("Expected count replaced with 3, got %d", all[0].Count)
	}

	total, err := logs.TotalForHabit(habit.ID)
	if err != nil {
		t.Fatalf("TotalForHabit failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
}

func TestLogRepository_ZeroCountRow(t *testing.T) {
	db := setupTestDB(t)
	habits := NewHabitRepository(db)
	logs := NewLogRepository(db)

	habit := &models.Habit{Name: "Read"}
	if err := habits.Create(habit); err != nil {
		t.Fatalf("Create habit failed: %v", err)
	}

	date := testDay("2026-08-29")
	if err := logs.Upsert(&models.CompletionLog{HabitID: habit.ID, Date: date, Count: 0}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// An explicit "not done" row exists and is distinct from no row.
	row, err := logs.GetByHabitAndDate(habit.ID, date)
	if err != nil {
		t.Fatalf("GetByHabitAndDate failed: %v", err)
	}
	if row.Count != 0 {
		t.Errorf("Expected count 0, got %d", row.Count)
	}
}

func TestLogRepository_GetByHabitAndDate_Missing(t *testing.T) {
	db := setupTestDB(t)
	logs := NewLogRepository(db)

	row, err := logs.GetByHabitAndDate(999, testDay("2026-08-29"))
	if err != nil {
		t.Fatalf("GetByHabitAndDate failed: %v", err)
	}
	if row != nil {
		t.Errorf("Expected nil for missing row, got %+v", row)
	}
}

func TestStreakRepository_BestNeverShrinks(t *testing.T) {
	db := setupTestDB(t)
	habits := NewHabitRepository(db)
	streaks := NewStreakRepository(db)

	habit := &models.Habit{Name: "Read"}
	if err := habits.Create(habit); err != nil {
		t.Fatalf("Create habit failed: %v", err)
	}

	if _, err := streaks.CreateOrUpdate(habit.ID, 5, 5, nil, nil); err != nil {
		t.Fatalf("CreateOrUpdate failed: %v", err)
	}

	// A later recompute with a broken streak must keep best at 5.
	state, err := streaks.CreateOrUpdate(habit.ID, 0, 0, nil, nil)
	if err != nil {
		t.Fatalf("CreateOrUpdate failed: %v", err)
	}
	if state.CurrentStreak != 0 {
		t.Errorf("Expected current 0, got %d", state.CurrentStreak)
	}
	if state.BestStreak != 5 {
		t.Errorf("Expected best 5 preserved, got %d", state.BestStreak)
	}

	// Best also absorbs a higher incoming current.
	state, err = streaks.CreateOrUpdate(habit.ID, 8, 3, nil, nil)
	if err != nil {
		t.Fatalf("CreateOrUpdate failed: %v", err)
	}
	if state.BestStreak != 8 {
		t.Errorf("Expected best 8, got %d", state.BestStreak)
	}
}

func TestStreakRepository_GetByHabitID_Missing(t *testing.T) {
	db := setupTestDB(t)
	streaks := NewStreakRepository(db)

	state, err := streaks.GetByHabitID(999)
	if err != nil {
		t.Fatalf("GetByHabitID failed: %v", err)
	}
	if state != nil {
		t.Errorf("Expected nil for missing state, got %+v", state)
	}
}

func TestAchievementRepository_RecordUnlockIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)

	first, isNew, err := repo.RecordUnlock("streak_7", nil, nil)
	if err != nil {
		t.Fatalf("First RecordUnlock failed: %v", err)
	}
	if !isNew {
		t.Fatal("Expected first unlock to be new")
	}

	second, isNew, err := repo.RecordUnlock("streak_7", nil, nil)
	if err != nil {
		t.Fatalf("Second RecordUnlock failed: %v", err)
	}
	if isNew {
		t.Error("Expected replayed unlock not to be new")
	}
	if !second.UnlockedAt.Equal(first.UnlockedAt) {
		t.Errorf("Expected original unlock time %v preserved, got %v", first.UnlockedAt, second.UnlockedAt)
	}

	ids, err := repo.GetUnlockedIDs()
	if err != nil {
		t.Fatalf("GetUnlockedIDs failed: %v", err)
	}
	if len(ids) != 1 || !ids["streak_7"] {
		t.Errorf("Expected exactly one unlocked id, got %v", ids)
	}
}

func TestAchievementRepository_MarkAsViewed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)

	if _, _, err := repo.RecordUnlock("streak_3", nil, nil); err != nil {
		t.Fatalf("RecordUnlock failed: %v", err)
	}
	if _, _, err := repo.RecordUnlock("streak_7", nil, nil); err != nil {
		t.Fatalf("RecordUnlock failed: %v", err)
	}

	if err := repo.MarkAsViewed([]string{"streak_3"}); err != nil {
		t.Fatalf("MarkAsViewed failed: %v", err)
	}
	row, err := repo.GetUnlockedByAchievementID("streak_3")
	if err != nil {
		t.Fatalf("GetUnlockedByAchievementID failed: %v", err)
	}
	if !row.Viewed {
		t.Error("Expected streak_3 viewed")
	}

	// Marking again is a no-op, not an error.
	if err := repo.MarkAsViewed([]string{"streak_3"}); err != nil {
		t.Fatalf("Repeat MarkAsViewed failed: %v", err)
	}

	if err := repo.MarkAllAsViewed(); err != nil {
		t.Fatalf("MarkAllAsViewed failed: %v", err)
	}
	row, err = repo.GetUnlockedByAchievementID("streak_7")
	if err != nil {
		t.Fatalf("GetUnlockedByAchievementID failed: %v", err)
	}
	if !row.Viewed {
		t.Error("Expected streak_7 viewed after MarkAllAsViewed")
	}
}

func TestAchievementRepository_ProgressLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)

	p, err := repo.UpdateProgress("mastery_100", 37, 100)
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if p.Percentage != 37 {
		t.Errorf("Expected 37%%, got %d%%", p.Percentage)
	}

	// Upsert replaces, keyed by achievement id.
	if _, err := repo.UpdateProgress("mastery_100", 50, 100); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	rows, err := repo.GetAllProgress()
	if err != nil {
		t.Fatalf("GetAllProgress failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected one progress row, got %d", len(rows))
	}
	if rows[0].CurrentValue != 50 || rows[0].Percentage != 50 {
		t.Errorf("Expected 50/100 (50%%), got %d/%d (%d%%)", rows[0].CurrentValue, rows[0].TargetValue, rows[0].Percentage)
	}

	if err := repo.DeleteProgress("mastery_100"); err != nil {
		t.Fatalf("DeleteProgress failed: %v", err)
	}
	got, err := repo.GetProgress("mastery_100")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected progress deleted, got %+v", got)
	}

	// Deleting a missing row is fine.
	if err := repo.DeleteProgress("mastery_100"); err != nil {
		t.Fatalf("DeleteProgress on missing row failed: %v", err)
	}
}

func TestHabitRepository_ArchiveFiltering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewHabitRepository(db)

	a := &models.Habit{Name: "Read"}
	b := &models.Habit{Name: "Run"}
	if err := repo.Create(a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(b); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.Archive(a.ID); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	active, err := repo.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != b.ID {
		t.Errorf("Expected only the non-archived habit, got %d", len(active))
	}

	all, err := repo.GetAllIncludingArchived()
	if err != nil {
		t.Fatalf("GetAllIncludingArchived failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected both habits, got %d", len(all))
	}

	count, err := repo.CountActive()
	if err != nil {
		t.Fatalf("CountActive failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 active habit, got %d", count)
	}

	oldest, err := repo.GetOldest()
	if err != nil {
		t.Fatalf("GetOldest failed: %v", err)
	}
	if oldest.ID != a.ID {
		t.Errorf("Expected archived habit still counted as oldest, got %d", oldest.ID)
	}
}

func TestGoalRepository_LinkIdempotent(t *testing.T) {
	db := setupTestDB(t)
	habits := NewHabitRepository(db)
	goals := NewGoalRepository(db)

	habit := &models.Habit{Name: "Read"}
	if err := habits.Create(habit); err != nil {
		t.Fatalf("Create habit failed: %v", err)
	}
	goal := &models.Goal{Name: "Learning"}
	if err := goals.Create(goal); err != nil {
		t.Fatalf("Create goal failed: %v", err)
	}

	if err := goals.LinkHabit(goal.ID, habit.ID); err != nil {
		t.Fatalf("LinkHabit failed: %v", err)
	}
	if err := goals.LinkHabit(goal.ID, habit.ID); err != nil {
		t.Fatalf("Repeat LinkHabit failed: %v", err)
	}

	ids, err := goals.GetHabitIDs(goal.ID)
	if err != nil {
		t.Fatalf("GetHabitIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != habit.ID {
		t.Errorf("Expected one link, got %v", ids)
	}

	if err := goals.UnlinkHabit(goal.ID, habit.ID); err != nil {
		t.Fatalf("UnlinkHabit failed: %v", err)
	}
	ids, err = goals.GetHabitIDs(goal.ID)
	if err != nil {
		t.Fatalf("GetHabitIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected no links after unlink, got %v", ids)
	}
}
