// Package streaks derives streak state from completion logs.
package streaks

import (
	"sort"
	"time"

	"github.com/jmlago/habitloop/internal/models"
)

// Result is the outcome of a streak computation as of a reference date.
type Result struct {
	CurrentStreak           int
	BestRun                 int // longest consecutive run anywhere in the supplied logs
	HasCompletedOnAsOfDate  bool
	DaysSinceLastCompletion *int // nil when no qualifying log exists at or before asOf
	LastCompletionDate      *time.Time
	StreakStartDate         *time.Time
}

// ComputeStreak turns a habit's completion logs into streak state as of an
// arbitrary reference date. Only date and count are read from the logs; order
// does not matter. A day qualifies when count >= minimumCount. Days listed in
// skipDays never break adjacency: a gap landing entirely on skip days keeps
// the streak alive.
//
// The break rule is strict: once more than one non-skip day has passed since
// the last qualifying completion, the current streak is 0 as of that date. A
// gap of exactly one day means "not completed yet today", not "broken".
func ComputeStreak(logs []models.CompletionLog, asOf time.Time, minimumCount int, skipDays map[time.Weekday]bool) Result {
	if minimumCount < 1 {
		minimumCount = 1
	}
	asOf = models.DateOnly(asOf)

	// Qualifying entries at or before asOf, newest first.
	var dates []time.Time
	for i := range logs {
		d := models.DateOnly(logs[i].Date)
		if logs[i].Count >= minimumCount && !d.After(asOf) {
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		return Result{}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	// Drop duplicate days so they cannot stall the adjacency walk.
	deduped := dates[:1]
	for i := 1; i < len(dates); i++ {
		if !dates[i].Equal(deduped[len(deduped)-1]) {
			deduped = append(deduped, dates[i])
		}
	}
	dates = deduped

	mostRecent := dates[0]
	daysSince := models.DaysBetween(mostRecent, asOf)

	res := Result{
		HasCompletedOnAsOfDate:  mostRecent.Equal(asOf),
		DaysSinceLastCompletion: &daysSince,
		LastCompletionDate:      &mostRecent,
	}

	// Walk adjacent qualifying dates, newest first, until the first real gap.
	run := 1
	start := mostRecent
	for i := 1; i < len(dates); i++ {
		if consecutive(dates[i], dates[i-1], skipDays) {
			run++
			start = dates[i]
			continue
		}
		break
	}

	// Longest run anywhere in history, for seeding the persisted best streak.
	res.BestRun = longestRun(dates, skipDays)

	if broken(mostRecent, asOf, skipDays) {
		// Streak lapsed by asOf; the run it had is history.
		res.CurrentStreak = 0
		return res
	}

	res.CurrentStreak = run
	res.StreakStartDate = &start
	return res
}

// consecutive reports whether earlier and later count as adjacent streak
// days: exactly one day apart, or separated only by skip days.
func consecutive(earlier, later time.Time, skipDays map[time.Weekday]bool) bool {
	gap := models.DaysBetween(earlier, later)
	if gap == 1 {
		return true
	}
	if gap < 1 {
		return false
	}
	return gapOnlySkipDays(earlier, later, skipDays)
}

// broken applies the break rule: more than one day since the last completion
// breaks the streak, unless every missed day before asOf was a skip day.
func broken(lastCompletion, asOf time.Time, skipDays map[time.Weekday]bool) bool {
	gap := models.DaysBetween(lastCompletion, asOf)
	if gap <= 1 {
		return false
	}
	// Days strictly between lastCompletion and asOf are misses; asOf itself
	// is still in progress and never counts against the streak.
	return !gapOnlySkipDays(lastCompletion, asOf, skipDays)
}

// gapOnlySkipDays reports whether every day strictly between from and to is a
// configured skip day.
func gapOnlySkipDays(from, to time.Time, skipDays map[time.Weekday]bool) bool {
	if len(skipDays) == 0 {
		return false
	}
	for d := from.AddDate(0, 0, 1); d.Before(to); d = d.AddDate(0, 0, 1) {
		if !skipDays[d.Weekday()] {
			return false
		}
	}
	return true
}

// longestRun finds the longest adjacent run in the dates (newest first).
func longestRun(dates []time.Time, skipDays map[time.Weekday]bool) int {
	best, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if consecutive(dates[i], dates[i-1], skipDays) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}
