package streak

import (
	"sort"
	"time"

	"example.com/fitproof/internal/domain"
)

// CalculateStreak reconstructs a streak from a user's completed-workout timestamps.
//
// History is replayed oldest-first through CalculateStreakUpdate, so the read path and
// the incremental write path share one set of gap and rest-day rules. Input order does
// not matter and the slice is not modified.
func (t *Tracker) CalculateStreak(history []time.Time) State {
	return t.State(t.Replay(history))
}

// Replay folds history into stored-counter form without evaluating elapsed-time status.
func (t *Tracker) Replay(history []time.Time) domain.StreakRecord {
	record, _ := t.replay(history)
	return record
}

// Backfill folds a workout older than the last recorded day into history and
// summarizes the change against the stored counters in prev. Longest never shrinks.
func (t *Tracker) Backfill(history []time.Time, workoutAt time.Time, prev domain.StreakRecord) (UpdateResult, domain.StreakRecord) {
	_, restBefore := t.replay(history)
	next, restAfter := t.replay(append(append([]time.Time(nil), history...), workoutAt))
	next.UserID = prev.UserID
	next.LongestStreak = max(next.LongestStreak, prev.LongestStreak)

	res := UpdateResult{
		PreviousStreak:  prev.CurrentStreak,
		NewStreak:       next.CurrentStreak,
		StreakIncreased: next.CurrentStreak > prev.CurrentStreak,
		StreakBroken:    next.CurrentStreak < prev.CurrentStreak,
		RestDayUsed:     restAfter > restBefore,
		RestDaysUsed:    next.RestDaysUsed,
	}
	if res.StreakIncreased {
		res.MilestoneReached = milestoneFor(res.NewStreak)
	}
	return res, next
}

// replay returns the folded counters and how many rest days were consumed along the way.
func (t *Tracker) replay(history []time.Time) (domain.StreakRecord, int) {
	ordered := append([]time.Time(nil), history...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Before(ordered[j])
	})

	var (
		record   domain.StreakRecord
		restDays int
	)
	for _, at := range ordered {
		res := t.CalculateStreakUpdate(record.CurrentStreak, record.LastWorkoutDate, at, record.RestDaysUsed)
		if res.RestDayUsed {
			restDays++
		}
		record = Apply(record, res, at)
	}
	return record, restDays
}
