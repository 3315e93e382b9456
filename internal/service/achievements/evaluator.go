package achievements

import (
	"fmt"
	"sort"
	"time"

	"github.com/jmlago/habitloop/internal/catalog"
	"github.com/jmlago/habitloop/internal/models"
)

// evalResult is what one condition evaluation reports back to the pipeline.
// Evaluators are pure reads; any progress-row writes they imply (per-event
// counters, tier-ladder sharing) are applied by the pipeline afterwards.
type evalResult struct {
	unlocked bool

	// countsEvent marks a qualifying per-event occurrence (early/evening
	// completions). The pipeline increments the persisted counter and owns
	// the final unlock decision for these kinds.
	countsEvent bool

	// observedTotal carries the completion total seen by total_completions /
	// total_habits_completions so the pipeline can update progress rows for
	// still-locked tiers.
	observedTotal int
	hasObserved   bool
}

// evaluate runs the condition of one catalog entry against the world view.
// The switch is exhaustive over the closed kind set; Validate has already
// rejected catalogs with unknown kinds, so the default arm is a defect guard.
func evaluate(def catalog.Definition, world *worldView, trigger models.TriggerContext) (evalResult, error) {
	cond := def.Condition
	switch cond.Type {
	case catalog.KindFirstAction:
		return boolResult(trigger.Trigger == cond.Action), nil

	case catalog.KindTaskCount:
		habits, err := world.ActiveHabits()
		if err != nil {
			return evalResult{}, err
		}
		return boolResult(len(habits) >= cond.Value), nil

	case catalog.KindStreakDays:
		ok, err := anyStreakAtLeast(world, cond.Value)
		return boolResult(ok), err

	case catalog.KindTotalCompletions:
		return evalTotalCompletions(world, trigger, cond.Value)

	case catalog.KindAllHabitsStreak:
		ok, err := allHabitsStreak(world, cond.Value)
		return boolResult(ok), err

	case catalog.KindPerfectWeek:
		ok, err := allHabitsStreak(world, cond.Value*7)
		return boolResult(ok), err

	case catalog.KindMultiHabitSameDay:
		ok, err := multiHabitSameDay(world, trigger.EffectiveDate(), cond.Value)
		return boolResult(ok), err

	case catalog.KindMultiHabitStreak:
		ok, err := multiHabitStreak(world, cond.Value, cond.Days)
		return boolResult(ok), err

	case catalog.KindEarlyCompletion:
		return evalTimedCompletion(cond, trigger, true)

	case catalog.KindEveningCompletion:
		return evalTimedCompletion(cond, trigger, false)

	case catalog.KindDateSpecific:
		return boolResult(world.Today().Format("01-02") == cond.Date), nil

	case catalog.KindAppAnniversary:
		ok, err := appAnniversary(world, cond.Value)
		return boolResult(ok), err

	case catalog.KindStreakRecovery:
		ok, err := streakRecovery(world, cond.Value, cond.MinLostStreak)
		return boolResult(ok), err

	case catalog.KindWeekendStreak:
		ok, err := weekendStreak(world, cond.Value)
		return boolResult(ok), err

	case catalog.KindTotalHabitsCompletions:
		return evalTotalHabitsCompletions(world, cond.Value)

	case catalog.KindConcurrentStreaks:
		ok, err := concurrentStreaks(world, cond.Value, cond.Days)
		return boolResult(ok), err

	case catalog.KindGoalStreakDays:
		ok, err := goalStreakDays(world, cond.Value)
		return boolResult(ok), err

	case catalog.KindGoalAllStreak:
		ok, err := goalAllStreak(world, cond.Value)
		return boolResult(ok), err

	default:
		return evalResult{}, fmt.Errorf("no evaluator for condition type %q", cond.Type)
	}
}

func boolResult(b bool) evalResult {
	return evalResult{unlocked: b}
}

// anyStreakAtLeast reports whether any habit's current streak reaches days.
func anyStreakAtLeast(world *worldView, days int) (bool, error) {
	streaks, err := world.Streaks()
	if err != nil {
		return false, err
	}
	for _, st := range streaks {
		if st.CurrentStreak >= days {
			return true, nil
		}
	}
	return false, nil
}

// evalTotalCompletions checks whether any single habit's lifetime completion
// total reaches value. Archived habits keep counting: a lifetime total never
// stops being earned. The observed total (the triggering habit's when known,
// otherwise the best) is reported so the pipeline can share it with the
// still-locked tiers of the mastery ladder.
func evalTotalCompletions(world *worldView, trigger models.TriggerContext, value int) (evalResult, error) {
	habits, err := world.AllHabits()
	if err != nil {
		return evalResult{}, err
	}

	maxTotal := 0
	for _, h := range habits {
		total, err := world.TotalFor(h.ID)
		if err != nil {
			return evalResult{}, err
		}
		if total > maxTotal {
			maxTotal = total
		}
	}

	observed := maxTotal
	if trigger.HabitID != nil {
		if total, err := world.TotalFor(*trigger.HabitID); err == nil {
			observed = total
		}
	}

	return evalResult{
		unlocked:      maxTotal >= value,
		observedTotal: observed,
		hasObserved:   true,
	}, nil
}

// evalTotalHabitsCompletions checks the completion total summed across every
// habit.
func evalTotalHabitsCompletions(world *worldView, value int) (evalResult, error) {
	habits, err := world.AllHabits()
	if err != nil {
		return evalResult{}, err
	}
	total := 0
	for _, h := range habits {
		t, err := world.TotalFor(h.ID)
		if err != nil {
			return evalResult{}, err
		}
		total += t
	}
	return evalResult{
		unlocked:      total >= value,
		observedTotal: total,
		hasObserved:   true,
	}, nil
}

// allHabitsStreak reports whether every active habit has a log with count >= 1
// on each of the last days calendar days, today included. Zero habits is a
// clean false.
func allHabitsStreak(world *worldView, days int) (bool, error) {
	habits, err := world.ActiveHabits()
	if err != nil {
		return false, err
	}
	if len(habits) == 0 || days < 1 {
		return false, nil
	}

	sets := make([]map[time.Time]bool, len(habits))
	for i, h := range habits {
		set, err := world.QualifyingDates(h.ID, 1)
		if err != nil {
			return false, err
		}
		sets[i] = set
	}

	day := world.Today().AddDate(0, 0, -(days - 1))
	for !day.After(world.Today()) {
		for _, set := range sets {
			if !set[day] {
				return false, nil
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return true, nil
}

// multiHabitSameDay counts habits with a qualifying log on the given day.
func multiHabitSameDay(world *worldView, date time.Time, value int) (bool, error) {
	habits, err := world.ActiveHabits()
	if err != nil {
		return false, err
	}
	count := 0
	for _, h := range habits {
		set, err := world.QualifyingDates(h.ID, h.QualifyingCount())
		if err != nil {
			return false, err
		}
		if set[models.DateOnly(date)] {
			count++
		}
	}
	return count >= value, nil
}

// multiHabitStreak requires at least value habits with a qualifying log on
// each of the last days calendar days. Fewer than value active habits cannot
// satisfy it.
func multiHabitStreak(world *worldView, value, days int) (bool, error) {
	habits, err := world.ActiveHabits()
	if err != nil {
		return false, err
	}
	if len(habits) < value || days < 1 {
		return false, nil
	}

	sets := make([]map[time.Time]bool, len(habits))
	for i, h := range habits {
		set, err := world.QualifyingDates(h.ID, h.QualifyingCount())
		if err != nil {
			return false, err
		}
		sets[i] = set
	}

	day := world.Today().AddDate(0, 0, -(days - 1))
	for !day.After(world.Today()) {
		count := 0
		for _, set := range sets {
			if set[day] {
				count++
			}
		}
		if count < value {
			return false, nil
		}
		day = day.AddDate(0, 0, 1)
	}
	return true, nil
}

// evalTimedCompletion handles early/evening completions. The trigger must be
// a completion event and its wall-clock time must fall on the right side of
// the threshold; a qualifying event is reported for the pipeline's per-event
// counter, which owns the unlock decision.
func evalTimedCompletion(cond catalog.Condition, trigger models.TriggerContext, before bool) (evalResult, error) {
	if trigger.Trigger != models.TriggerTaskCompletion {
		return evalResult{}, nil
	}

	threshold, err := time.Parse("15:04", cond.Time)
	if err != nil {
		return evalResult{}, fmt.Errorf("invalid condition time %q: %w", cond.Time, err)
	}

	eventMinutes := trigger.At.Hour()*60 + trigger.At.Minute()
	thresholdMinutes := threshold.Hour()*60 + threshold.Minute()

	qualifies := eventMinutes < thresholdMinutes
	if !before {
		qualifies = eventMinutes >= thresholdMinutes
	}
	return evalResult{countsEvent: qualifies}, nil
}

// appAnniversary measures account age via the oldest habit's creation time.
func appAnniversary(world *worldView, years int) (bool, error) {
	oldest, err := world.OldestHabit()
	if err != nil {
		return false, err
	}
	if oldest == nil {
		return false, nil
	}
	anniversary := oldest.CreatedAt.AddDate(years, 0, 0)
	return !world.Today().Before(models.DateOnly(anniversary)), nil
}

// streakRecovery has two modes. With minLostStreak 0 it looks for a quick
// resume: any habit whose log history contains a gap of one or two missed
// days between qualifying entries. With minLostStreak > 0 it requires a habit
// that once reached minLostStreak, lost that streak, and has rebuilt to at
// least value.
func streakRecovery(world *worldView, value, minLostStreak int) (bool, error) {
	habits, err := world.ActiveHabits()
	if err != nil {
		return false, err
	}

	if minLostStreak == 0 {
		for _, h := range habits {
			logs, err := world.LogsFor(h.ID)
			if err != nil {
				return false, err
			}
			dates := qualifyingDatesSorted(logs, h.QualifyingCount())
			for i := 1; i < len(dates); i++ {
				gap := models.DaysBetween(dates[i-1], dates[i])
				if gap >= 2 && gap <= 3 {
					return true, nil
				}
			}
		}
		return false, nil
	}

	streaks, err := world.Streaks()
	if err != nil {
		return false, err
	}
	for _, st := range streaks {
		if st.BestStreak >= minLostStreak && st.CurrentStreak < st.BestStreak && st.CurrentStreak >= value {
			return true, nil
		}
	}
	return false, nil
}

// weekendStreak walks back weekend by weekend from today. A weekend counts
// when some habit has qualifying logs on both its Saturday and Sunday. A
// missed past weekend resets the run to zero and the walk continues, so an
// older run of enough consecutive weekends still qualifies. The current,
// not-yet-complete weekend is neutral and neither counts nor resets.
func weekendStreak(world *worldView, value int) (bool, error) {
	habits, err := world.ActiveHabits()
	if err != nil {
		return false, err
	}
	if len(habits) == 0 {
		return false, nil
	}

	sets := make([]map[time.Time]bool, len(habits))
	var earliest time.Time
	for i, h := range habits {
		set, err := world.QualifyingDates(h.ID, h.QualifyingCount())
		if err != nil {
			return false, err
		}
		sets[i] = set
		for d := range set {
			if earliest.IsZero() || d.Before(earliest) {
				earliest = d
			}
		}
	}
	if earliest.IsZero() {
		return false, nil
	}

	today := world.Today()
	sat := lastSaturday(today)
	count := 0

	for !sat.Before(earliest.AddDate(0, 0, -1)) {
		sun := sat.AddDate(0, 0, 1)

		counts := false
		for _, set := range sets {
			if set[sat] && set[sun] {
				counts = true
				break
			}
		}

		switch {
		case counts:
			count++
			if count >= value {
				return true, nil
			}
		case !sun.Before(today):
			// Weekend still in progress: neutral.
		default:
			count = 0
		}

		sat = sat.AddDate(0, 0, -7)
	}
	return false, nil
}

// concurrentStreaks counts habits whose current streak reaches days, at this
// instant.
func concurrentStreaks(world *worldView, value, days int) (bool, error) {
	streaks, err := world.Streaks()
	if err != nil {
		return false, err
	}
	count := 0
	for _, st := range streaks {
		if st.CurrentStreak >= days {
			count++
		}
	}
	return count >= value, nil
}

// goalStreakDays reports whether some goal with linked habits has every
// linked habit at a current streak of at least value.
func goalStreakDays(world *worldView, value int) (bool, error) {
	goals, err := world.Goals()
	if err != nil {
		return false, err
	}
	streaks, err := world.Streaks()
	if err != nil {
		return false, err
	}

	for _, goal := range goals {
		ids, err := world.GoalHabitIDs(goal.ID)
		if err != nil {
			return false, err
		}
		if len(ids) == 0 {
			continue
		}
		all := true
		for _, id := range ids {
			if streaks[id].CurrentStreak < value {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

// goalAllStreak reports whether some goal has every linked habit completed
// on each of the last value days.
func goalAllStreak(world *worldView, days int) (bool, error) {
	goals, err := world.Goals()
	if err != nil {
		return false, err
	}

	for _, goal := range goals {
		ids, err := world.GoalHabitIDs(goal.ID)
		if err != nil {
			return false, err
		}
		if len(ids) == 0 {
			continue
		}

		ok := true
	dayLoop:
		for d := 0; d < days; d++ {
			day := world.Today().AddDate(0, 0, -d)
			for _, id := range ids {
				set, err := world.QualifyingDates(id, 1)
				if err != nil {
					return false, err
				}
				if !set[day] {
					ok = false
					break dayLoop
				}
			}
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// qualifyingDatesSorted returns qualifying log dates, oldest first.
func qualifyingDatesSorted(logs []models.CompletionLog, minCount int) []time.Time {
	var dates []time.Time
	for i := range logs {
		if logs[i].Count >= minCount {
			dates = append(dates, models.DateOnly(logs[i].Date))
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// lastSaturday returns the most recent Saturday at or before the given day.
func lastSaturday(day time.Time) time.Time {
	offset := (int(day.Weekday()) - int(time.Saturday) + 7) % 7
	return day.AddDate(0, 0, -offset)
}
