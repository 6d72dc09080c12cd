package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitproof/internal/clock"
	"example.com/fitproof/internal/domain"
)

func dailyHistory(end time.Time, days int) []time.Time {
	out := make([]time.Time, 0, days)
	for i := days - 1; i >= 0; i-- {
		out = append(out, end.AddDate(0, 0, -i))
	}
	return out
}

func TestCalculateStreakEmptyHistory(t *testing.T) {
	state := newTestTracker().CalculateStreak(nil)

	require.Equal(t, StatusNew, state.Status)
	require.Equal(t, 0, state.CurrentStreak)
	require.Nil(t, state.LastWorkoutDate)
	require.Equal(t, 0, state.DaysUntilBreak)
}

func TestCalculateStreakConsecutiveDays(t *testing.T) {
	history := dailyHistory(now.Add(-2*time.Hour), 9)

	state := newTestTracker().CalculateStreak(history)

	require.Equal(t, StatusActive, state.Status)
	require.Equal(t, 9, state.CurrentStreak)
	require.Equal(t, 9, state.LongestStreak)
	require.Equal(t, 1, state.RestDaysAvailable)
	require.Equal(t, 2, state.DaysUntilBreak)
}

func TestCalculateStreakIgnoresOrderAndDuplicates(t *testing.T) {
	history := dailyHistory(now.Add(-time.Hour), 4)
	shuffled := []time.Time{history[2], history[0], history[3], history[1], history[3].Add(-30 * time.Minute)}

	state := newTestTracker().CalculateStreak(shuffled)

	require.Equal(t, 4, state.CurrentStreak)
	require.Equal(t, history[3], *state.LastWorkoutDate)
	require.Equal(t, history[2], shuffled[0], "input slice is not reordered")
}

func TestCalculateStreakRestDayGap(t *testing.T) {
	// Six consecutive days, a skipped day, then two more days.
	end := now.Add(-time.Hour)
	history := append(dailyHistory(end.AddDate(0, 0, -3), 6), end.AddDate(0, 0, -1), end)

	state := newTestTracker().CalculateStreak(history)

	require.Equal(t, 9, state.CurrentStreak, "6 + rest day credit + 1")
	require.Equal(t, 1, state.RestDaysUsed)
	require.Equal(t, 0, state.RestDaysAvailable)
}

func TestCalculateStreakUnearnedGapBreaks(t *testing.T) {
	end := now.Add(-time.Hour)
	history := append(dailyHistory(end.AddDate(0, 0, -5), 4), end.AddDate(0, 0, -2), end.AddDate(0, 0, -1), end)

	state := newTestTracker().CalculateStreak(history)

	require.Equal(t, 3, state.CurrentStreak)
	require.Equal(t, 4, state.LongestStreak)
}

func TestCalculateStreakStatusFromElapsedTime(t *testing.T) {
	tracker := newTestTracker()

	cases := []struct {
		name     string
		last     time.Time
		days     int
		status   Status
		current  int
		untilBrk int
	}{
		{name: "active", last: now.Add(-3 * time.Hour), days: 6, status: StatusActive, current: 6, untilBrk: 2},
		{name: "at risk", last: now.Add(-30 * time.Hour), days: 5, status: StatusAtRisk, current: 5, untilBrk: 1},
		{name: "exactly 48h is still at risk", last: now.Add(-48 * time.Hour), days: 5, status: StatusAtRisk, current: 5, untilBrk: 0},
		{name: "broken", last: now.Add(-49 * time.Hour), days: 5, status: StatusBroken, current: 0, untilBrk: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := tracker.CalculateStreak(dailyHistory(tc.last, tc.days))
			require.Equal(t, tc.status, state.Status)
			require.Equal(t, tc.current, state.CurrentStreak)
			require.Equal(t, tc.untilBrk, state.DaysUntilBreak)
		})
	}
}

func TestBrokenStateKeepsLongestStreak(t *testing.T) {
	history := dailyHistory(now.AddDate(0, 0, -5), 10)

	state := newTestTracker().CalculateStreak(history)

	require.Equal(t, StatusBroken, state.Status)
	require.Equal(t, 0, state.CurrentStreak)
	require.Equal(t, 10, state.LongestStreak)
	require.Equal(t, 0, state.RestDaysAvailable)
}

func TestReplayMatchesIncrementalUpdates(t *testing.T) {
	tracker := newTestTracker()
	end := now.Add(-time.Hour)
	history := []time.Time{
		end.AddDate(0, 0, -20), end.AddDate(0, 0, -19), end.AddDate(0, 0, -18), end.AddDate(0, 0, -17),
		end.AddDate(0, 0, -16), end.AddDate(0, 0, -15), end.AddDate(0, 0, -13), end.AddDate(0, 0, -12),
		end.AddDate(0, 0, -8), end.AddDate(0, 0, -7), end.AddDate(0, 0, -6), end,
	}

	var incremental domain.StreakRecord
	for _, at := range history {
		res := tracker.CalculateStreakUpdate(incremental.CurrentStreak, incremental.LastWorkoutDate, at, incremental.RestDaysUsed)
		incremental = Apply(incremental, res, at)
	}

	require.Equal(t, incremental, tracker.Replay(history))
}

func TestStateFromStoredRecord(t *testing.T) {
	fixed := clock.NewFixed(now)
	tracker := NewTracker(fixed)
	last := now.Add(-5 * time.Hour)
	record := domain.StreakRecord{CurrentStreak: 13, LongestStreak: 13, LastWorkoutDate: &last, RestDaysUsed: 1}

	state := tracker.State(record)
	require.Equal(t, StatusActive, state.Status)
	require.Equal(t, 1, state.RestDaysAvailable)

	fixed.Advance(72 * time.Hour)
	state = tracker.State(record)
	require.Equal(t, StatusBroken, state.Status)
	require.Equal(t, 0, state.CurrentStreak)
	require.Equal(t, 13, state.LongestStreak)
}

func TestBackfillReportsMilestone(t *testing.T) {
	tracker := newTestTracker()
	mon := now.AddDate(0, 0, -2)
	history := []time.Time{mon, now}
	prev := tracker.Replay(history)
	prev.UserID = "user-1"
	require.Equal(t, 1, prev.CurrentStreak)

	res, next := tracker.Backfill(history, mon.AddDate(0, 0, 1), prev)

	require.Equal(t, 1, res.PreviousStreak)
	require.Equal(t, 3, res.NewStreak)
	require.True(t, res.StreakIncreased)
	require.False(t, res.StreakBroken)
	require.False(t, res.RestDayUsed)
	require.NotNil(t, res.MilestoneReached)
	require.Equal(t, 3, *res.MilestoneReached)

	require.Equal(t, "user-1", next.UserID)
	require.Equal(t, 3, next.CurrentStreak)
	require.True(t, next.LastWorkoutDate.Equal(now))
}

func TestBackfillReportsRestDayConsumedByReplay(t *testing.T) {
	tracker := newTestTracker()
	history := append(dailyHistory(now.AddDate(0, 0, -3), 6), now)
	prev := tracker.Replay(history)
	require.Equal(t, 1, prev.CurrentStreak)
	require.Equal(t, 6, prev.LongestStreak)

	res, next := tracker.Backfill(history, now.AddDate(0, 0, -2), prev)

	require.Equal(t, 9, res.NewStreak)
	require.True(t, res.StreakIncreased)
	require.True(t, res.RestDayUsed)
	require.Equal(t, 1, res.RestDaysUsed)
	require.Nil(t, res.MilestoneReached)
	require.Equal(t, 9, next.LongestStreak)
}

func TestBackfillKeepsStoredLongest(t *testing.T) {
	tracker := newTestTracker()
	history := []time.Time{now.AddDate(0, 0, -3), now}
	prev := domain.StreakRecord{UserID: "user-1", CurrentStreak: 1, LongestStreak: 40, LastWorkoutDate: &history[1]}

	res, next := tracker.Backfill(history, now.AddDate(0, 0, -1), prev)

	require.Equal(t, 2, res.NewStreak)
	require.Equal(t, 40, next.LongestStreak)
}
