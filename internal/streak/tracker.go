// Package streak implements the daily workout streak state machine.
//
// A streak counts consecutive calendar days with at least one completed workout.
// One rest day is earned per RestDayCycle consecutive days and lets a single-day gap
// pass without breaking the streak. Day arithmetic happens in the tracker's location;
// elapsed-time status uses the injected clock.
package streak

import (
	"math"
	"time"

	"example.com/fitproof/internal/clock"
)

// Status is the elapsed-time classification of a streak.
type Status string

const (
	StatusNew    Status = "new"
	StatusActive Status = "active"
	StatusAtRisk Status = "at_risk"
	StatusBroken Status = "broken"
)

// RestDayCycle is the number of consecutive active days that earns one rest day.
const RestDayCycle = 6

const (
	atRiskAfter = 24 * time.Hour
	brokenAfter = 48 * time.Hour
)

// Milestones are the streak lengths reported as milestones, exact match only.
var Milestones = []int{3, 7, 14, 30, 60, 100, 365}

// State is the user-facing view of a streak at a point in time.
type State struct {
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	LastWorkoutDate   *time.Time `json:"last_workout_date,omitempty"`
	RestDaysUsed      int        `json:"rest_days_used"`
	RestDaysAvailable int        `json:"rest_days_available"`
	Status            Status     `json:"streak_status"`
	DaysUntilBreak    int        `json:"days_until_break"`
}

// UpdateResult describes the effect of one workout on a streak.
// RestDaysUsed is the used-counter value the caller should persist.
type UpdateResult struct {
	PreviousStreak   int  `json:"previous_streak"`
	NewStreak        int  `json:"new_streak"`
	StreakIncreased  bool `json:"streak_increased"`
	StreakBroken     bool `json:"streak_broken"`
	RestDayUsed      bool `json:"rest_day_used"`
	MilestoneReached *int `json:"milestone_reached,omitempty"`
	RestDaysUsed     int  `json:"rest_days_used"`
}

// Option configures optional behaviour for the Tracker.
type Option func(*Tracker)

// WithLocation sets the time zone whose midnights delimit calendar days.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// Tracker evaluates streak transitions. It holds no per-user state and is safe for concurrent use.
type Tracker struct {
	clock clock.Clock
	loc   *time.Location
}

// NewTracker constructs a Tracker.
func NewTracker(clk clock.Clock, opts ...Option) *Tracker {
	if clk == nil {
		clk = clock.System{}
	}
	t := &Tracker{clock: clk, loc: time.UTC}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Location returns the time zone used for calendar-day math.
func (t *Tracker) Location() *time.Location {
	return t.loc
}

// DateDiff returns the absolute number of calendar days between a and b.
func (t *Tracker) DateDiff(a, b time.Time) int {
	diff := int(t.dayNumber(a) - t.dayNumber(b))
	if diff < 0 {
		return -diff
	}
	return diff
}

// StartOfDay returns local midnight of the day containing ts.
func (t *Tracker) StartOfDay(ts time.Time) time.Time {
	y, m, d := ts.In(t.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.loc)
}

// dayNumber counts days since the epoch for the calendar date of ts, independent of DST.
func (t *Tracker) dayNumber(ts time.Time) int64 {
	y, m, d := ts.In(t.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / int64(24*time.Hour/time.Second)
}

// RestDaysAvailable returns floor(streak/RestDayCycle) minus the days already used, never below zero.
func RestDaysAvailable(restDaysUsed, currentStreak int) int {
	if restDaysUsed < 0 {
		restDaysUsed = 0
	}
	if currentStreak < 0 {
		currentStreak = 0
	}
	available := currentStreak/RestDayCycle - restDaysUsed
	if available < 0 {
		return 0
	}
	return available
}

// CanUseRestDay reports whether a single-day gap can be covered.
func CanUseRestDay(restDaysUsed, currentStreak int) bool {
	return RestDaysAvailable(restDaysUsed, currentStreak) > 0
}

// status classifies a streak by hours since its last workout.
func (t *Tracker) status(last *time.Time) (Status, int) {
	if last == nil {
		return StatusNew, 0
	}
	elapsed := t.clock.Now().Sub(*last)
	if elapsed < 0 {
		elapsed = 0
	}
	switch {
	case elapsed > brokenAfter:
		return StatusBroken, 0
	case elapsed >= atRiskAfter:
		return StatusAtRisk, daysUntil(brokenAfter - elapsed)
	default:
		return StatusActive, daysUntil(brokenAfter - elapsed)
	}
}

func daysUntil(remaining time.Duration) int {
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

func milestoneFor(streak int) *int {
	for _, m := range Milestones {
		if m == streak {
			v := m
			return &v
		}
	}
	return nil
}
