package streaks

import (
	"testing"
	"time"

	"github.com/jmlago/habitloop/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func entry(date string, count int) models.CompletionLog {
	return models.CompletionLog{Date: day(date), Count: count}
}

func TestComputeStreak_NoLogs(t *testing.T) {
	res := ComputeStreak(nil, day("2026-08-29"), 1, nil)

	if res.CurrentStreak != 0 {
		t.Errorf("Expected current streak 0, got %d", res.CurrentStreak)
	}
	if res.BestRun != 0 {
		t.Errorf("Expected best run 0, got %d", res.BestRun)
	}
	if res.DaysSinceLastCompletion != nil {
		t.Error("Expected nil days since last completion")
	}
	if res.LastCompletionDate != nil {
		t.Error("Expected nil last completion date")
	}
}

func TestComputeStreak_SingleLogToday(t *testing.T) {
	logs := []models.CompletionLog{entry("2026-08-29", 1)}
	res := ComputeStreak(logs, day("2026-08-29"), 1, nil)

	if res.CurrentStreak != 1 {
		t.Errorf("Expected current streak 1, got %d", res.CurrentStreak)
	}
	if !res.HasCompletedOnAsOfDate {
		t.Error("Expected completion on asOf date")
	}
	if res.DaysSinceLastCompletion == nil || *res.DaysSinceLastCompletion != 0 {
		t.Errorf("Expected 0 days since last completion, got %v", res.DaysSinceLastCompletion)
	}
	if res.StreakStartDate == nil || !res.StreakStartDate.Equal(day("2026-08-29")) {
		t.Errorf("Expected streak start 2026-08-29, got %v", res.StreakStartDate)
	}
}

func TestComputeStreak_ConsecutiveRun(t *testing.T) {
	logs := []models.CompletionLog{
		entry("2026-08-27", 1),
		entry("2026-08-28", 1),
		entry("2026-08-29", 1),
	}
	res := ComputeStreak(logs, day("2026-08-29"), 1, nil)

	if res.CurrentStreak != 3 {
		t.Errorf("Expected current streak 3, got %d", res.CurrentStreak)
	}
	if res.BestRun != 3 {
		t.Errorf("Expected best run 3, got %d", res.BestRun)
	}
	if res.StreakStartDate == nil || !res.StreakStartDate.Equal(day("2026-08-27")) {
		t.Errorf("Expected streak start 2026-08-27, got %v", res.StreakStartDate)
	}
}

func TestComputeStreak_YesterdayNotBroken(t *testing.T) {
	// Last completion yesterday: one missed day means "not completed yet",
	// not "broken".
	logs := []models.CompletionLog{
		entry("2026-08-27", 1),
		entry("2026-08-28", 1),
	}
	res := ComputeStreak(logs, day("2026-08-29"), 1, nil)

	if res.CurrentStreak != 2 {
		t.Errorf("Expected current streak 2, got %d", res.CurrentStreak)
	}
	if res.HasCompletedOnAsOfDate {
		t.Error("Expected no completion on asOf date")
	}
	if res.DaysSinceLastCompletion == nil || *res.DaysSinceLastCompletion != 1 {
		t.Errorf("Expected 1 day since last completion, got %v", res.DaysSinceLastCompletion)
	}
}

func TestComputeStreak_TwoDayGapBreaks(t *testing.T) {
	logs := []models.CompletionLog{
		entry("2026-08-25", 1),
		entry("2026-08-26", 1),
		entry("2026-08-27", 1),
	}
	res := ComputeStreak(logs, day("2026-08-29"), 1, nil)

	if res.CurrentStreak != 0 {
		t.Errorf("Expected broken streak, got %d", res.CurrentStreak)
	}
	if res.BestRun != 3 {
		t.Errorf("Expected best run 3 preserved, got %d", res.BestRun)
	}
	if res.DaysSinceLastCompletion == nil || *res.DaysSinceLastCompletion != 2 {
		t.Errorf("Expected 2 days since last completion, got %v", res.DaysSinceLastCompletion)
	}
	if res.StreakStartDate != nil {
		t.Errorf("Expected nil streak start for broken streak, got %v", res.StreakStartDate)
	}
}

func TestComputeStreak_SkipDaysBridgeGap(t *testing.T) {
	skip := map[time.Weekday]bool{time.Saturday: true, time.Sunday: true}

	// Friday and Monday logs; the weekend is skipped, so they are adjacent.
	logs := []models.CompletionLog{
		entry("2026-08-28", 1), // Friday
		entry("2026-08-31", 1), // Monday
	}
	res := ComputeStreak(logs, day("2026-08-31"), 1, skip)

	if res.CurrentStreak != 2 {
		t.Errorf("Expected current streak 2 across skipped weekend, got %d", res.CurrentStreak)
	}
	if res.StreakStartDate == nil || !res.StreakStartDate.Equal(day("2026-08-28")) {
		t.Errorf("Expected streak start 2026-08-28, got %v", res.StreakStartDate)
	}
}

func TestComputeStreak_SkipDaysKeepStreakAlive(t *testing.T) {
	skip := map[time.Weekday]bool{time.Saturday: true, time.Sunday: true}

	// Last completion Friday, asOf Monday: Saturday and Sunday are skip days,
	// Monday itself is still in progress.
	logs := []models.CompletionLog{
		entry("2026-08-27", 1), // Thursday
		entry("2026-08-28", 1), // Friday
	}
	res := ComputeStreak(logs, day("2026-08-31"), 1, skip)

	if res.CurrentStreak != 2 {
		t.Errorf("Expected current streak 2 over skipped weekend, got %d", res.CurrentStreak)
	}
}

func TestComputeStreak_GapWithNonSkipDayBreaks(t *testing.T) {
	skip := map[time.Weekday]bool{time.Sunday: true}

	// Friday to Monday with only Sunday skipped: Saturday is a real miss.
	logs := []models.CompletionLog{
		entry("2026-08-28", 1), // Friday
	}
	res := ComputeStreak(logs, day("2026-08-31"), 1, skip)

	if res.CurrentStreak != 0 {
		t.Errorf("Expected broken streak, got %d", res.CurrentStreak)
	}
}

func TestComputeStreak_MinimumCount(t *testing.T) {
	logs := []models.CompletionLog{
		entry("2026-08-28", 3),
		entry("2026-08-29", 1), // below minimum, does not qualify
	}
	res := ComputeStreak(logs, day("2026-08-29"), 2, nil)

	if res.CurrentStreak != 1 {
		t.Errorf("Expected current streak 1, got %d", res.CurrentStreak)
	}
	if res.HasCompletedOnAsOfDate {
		t.Error("Expected below-minimum log not to count as completion")
	}
	if res.LastCompletionDate == nil || !res.LastCompletionDate.Equal(day("2026-08-28")) {
		t.Errorf("Expected last completion 2026-08-28, got %v", res.LastCompletionDate)
	}
}

func TestComputeStreak_ZeroCountDoesNotQualify(t *testing.T) {
	// An explicit "not done" row must not extend the streak.
	logs := []models.CompletionLog{
		entry("2026-08-28", 1),
		entry("2026-08-29", 0),
	}
	res := ComputeStreak(logs, day("2026-08-29"), 1, nil)

	if res.CurrentStreak != 1 {
		t.Errorf("Expected current streak 1, got %d", res.CurrentStreak)
	}
	if res.HasCompletedOnAsOfDate {
		t.Error("Expected count 0 not to count as completion")
	}
}

func TestComputeStreak_FutureLogsIgnored(t *testing.T) {
	logs := []models.CompletionLog{
		entry("2026-08-28", 1),
		entry("2026-08-29", 1),
		entry("2026-09-05", 1), // after asOf
	}
	res := ComputeStreak(logs, day("2026-08-29"), 1, nil)

	if res.CurrentStreak != 2 {
		t.Errorf("Expected current streak 2, got %d", res.CurrentStreak)
	}
	if res.LastCompletionDate == nil || !res.LastCompletionDate.Equal(day("2026-08-29")) {
		t.Errorf("Expected last completion 2026-08-29, got %v", res.LastCompletionDate)
	}
}

func TestComputeStreak_BestRunFromHistory(t *testing.T) {
	// A five-day run in the past, a fresh two-day run now.
	logs := []models.CompletionLog{
		entry("2026-08-03", 1),
		entry("2026-08-04", 1),
		entry("2026-08-05", 1),
		entry("2026-08-06", 1),
		entry("2026-08-07", 1),
		entry("2026-08-28", 1),
		entry("2026-08-29", 1),
	}
	res := ComputeStreak(logs, day("2026-08-29"), 1, nil)

	if res.CurrentStreak != 2 {
		t.Errorf("Expected current streak 2, got %d", res.CurrentStreak)
	}
	if res.BestRun != 5 {
		t.Errorf("Expected best run 5, got %d", res.BestRun)
	}
}

func TestComputeStreak_UnorderedLogs(t *testing.T) {
	logs := []models.CompletionLog{
		entry("2026-08-29", 1),
		entry("2026-08-27", 1),
		entry("2026-08-28", 1),
	}
	res := ComputeStreak(logs, day("2026-08-29"), 1, nil)

	if res.CurrentStreak != 3 {
		t.Errorf("Expected order-independent streak 3, got %d", res.CurrentStreak)
	}
}

func TestComputeStreak_DuplicateDates(t *testing.T) {
	// Duplicate rows for the same day must not inflate the run.
	logs := []models.CompletionLog{
		entry("2026-08-28", 1),
		entry("2026-08-29", 1),
		entry("2026-08-29", 2),
	}
	res := ComputeStreak(logs, day("2026-08-29"), 1, nil)

	if res.CurrentStreak != 2 {
		t.Errorf("Expected current streak 2, got %d", res.CurrentStreak)
	}
}
