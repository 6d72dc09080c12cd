package streak

import (
	"time"

	"example.com/fitproof/internal/domain"
)

// CalculateStreakUpdate applies one completed workout at workoutAt to a streak.
//
//	no prior workout         -> streak starts at 1
//	same day                 -> unchanged
//	next day                 -> +1
//	one-day gap, rest day    -> +2, rest day consumed
//	one-day gap, no rest day -> broken, restarts at 1
//	longer gap               -> broken, restarts at 1
//
// The used-counter resets whenever the new streak is a multiple of RestDayCycle
// and when the streak breaks.
func (t *Tracker) CalculateStreakUpdate(previousStreak int, lastWorkoutDate *time.Time, workoutAt time.Time, restDaysUsed int) UpdateResult {
	res := UpdateResult{
		PreviousStreak: previousStreak,
		RestDaysUsed:   restDaysUsed,
	}

	if lastWorkoutDate == nil {
		res.NewStreak = 1
		res.StreakIncreased = true
		res.RestDaysUsed = 0
		res.MilestoneReached = milestoneFor(res.NewStreak)
		return res
	}

	switch diff := t.DateDiff(workoutAt, *lastWorkoutDate); {
	case diff == 0:
		res.NewStreak = previousStreak
		return res
	case diff == 1:
		res.NewStreak = previousStreak + 1
		res.StreakIncreased = true
	case diff == 2 && CanUseRestDay(restDaysUsed, previousStreak):
		res.NewStreak = previousStreak + 2
		res.StreakIncreased = true
		res.RestDayUsed = true
		res.RestDaysUsed = restDaysUsed + 1
	default:
		res.NewStreak = 1
		res.StreakBroken = true
		res.RestDaysUsed = 0
		return res
	}

	if res.NewStreak%RestDayCycle == 0 {
		res.RestDaysUsed = 0
	}
	res.MilestoneReached = milestoneFor(res.NewStreak)
	return res
}

// Apply folds an update into stored counters. LastWorkoutDate only moves forward,
// so a late-synced older workout never rewinds it.
func Apply(record domain.StreakRecord, res UpdateResult, workoutAt time.Time) domain.StreakRecord {
	out := record
	out.CurrentStreak = res.NewStreak
	out.RestDaysUsed = res.RestDaysUsed
	if res.NewStreak > out.LongestStreak {
		out.LongestStreak = res.NewStreak
	}
	if out.LastWorkoutDate == nil || workoutAt.After(*out.LastWorkoutDate) {
		ts := workoutAt
		out.LastWorkoutDate = &ts
	}
	return out
}

// State evaluates stored counters against the clock.
// A broken streak reports a current streak of zero for display.
func (t *Tracker) State(record domain.StreakRecord) State {
	status, daysLeft := t.status(record.LastWorkoutDate)
	current := record.CurrentStreak
	if status == StatusBroken {
		current = 0
	}
	return State{
		CurrentStreak:     current,
		LongestStreak:     max(record.LongestStreak, current),
		LastWorkoutDate:   record.LastWorkoutDate,
		RestDaysUsed:      record.RestDaysUsed,
		RestDaysAvailable: RestDaysAvailable(record.RestDaysUsed, current),
		Status:            status,
		DaysUntilBreak:    daysLeft,
	}
}
