package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/fitproof/internal/clock"
	"example.com/fitproof/internal/domain"
)

var now = time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)

func newTestTracker() *Tracker {
	return NewTracker(clock.NewFixed(now))
}

func daysAgo(n int) *time.Time {
	ts := now.AddDate(0, 0, -n)
	return &ts
}

func TestCalculateStreakUpdateTransitions(t *testing.T) {
	tracker := newTestTracker()

	cases := []struct {
		name          string
		previous      int
		last          *time.Time
		used          int
		wantStreak    int
		wantIncreased bool
		wantBroken    bool
		wantRestDay   bool
	}{
		{name: "first workout", previous: 0, last: nil, wantStreak: 1, wantIncreased: true},
		{name: "same day", previous: 4, last: daysAgo(0), wantStreak: 4},
		{name: "next day", previous: 4, last: daysAgo(1), wantStreak: 5, wantIncreased: true},
		{name: "gap covered by rest day", previous: 6, last: daysAgo(2), wantStreak: 8, wantIncreased: true, wantRestDay: true},
		{name: "gap without rest day", previous: 3, last: daysAgo(2), wantStreak: 1, wantBroken: true},
		{name: "gap with rest day already used", previous: 8, last: daysAgo(2), used: 1, wantStreak: 1, wantBroken: true},
		{name: "three day gap", previous: 20, last: daysAgo(3), wantStreak: 1, wantBroken: true},
		{name: "long gap ignores rest days", previous: 60, last: daysAgo(10), wantStreak: 1, wantBroken: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := tracker.CalculateStreakUpdate(tc.previous, tc.last, now, tc.used)
			assert.Equal(t, tc.previous, res.PreviousStreak)
			assert.Equal(t, tc.wantStreak, res.NewStreak)
			assert.Equal(t, tc.wantIncreased, res.StreakIncreased)
			assert.Equal(t, tc.wantBroken, res.StreakBroken)
			assert.Equal(t, tc.wantRestDay, res.RestDayUsed)
		})
	}
}

func TestRestDayConsumedScenario(t *testing.T) {
	res := newTestTracker().CalculateStreakUpdate(6, daysAgo(2), now, 0)

	require.Equal(t, 8, res.NewStreak)
	require.True(t, res.RestDayUsed)
	require.False(t, res.StreakBroken)
	require.Equal(t, 1, res.RestDaysUsed)
	require.Nil(t, res.MilestoneReached, "8 is not a milestone")
}

func TestGapWithoutEarnedRestDayScenario(t *testing.T) {
	res := newTestTracker().CalculateStreakUpdate(3, daysAgo(2), now, 0)

	require.Equal(t, 1, res.NewStreak)
	require.True(t, res.StreakBroken)
	require.False(t, res.RestDayUsed)
	require.Nil(t, res.MilestoneReached)
}

func TestDayDifferenceUsesCalendarDays(t *testing.T) {
	tracker := newTestTracker()
	lateNight := time.Date(2025, time.March, 9, 23, 55, 0, 0, time.UTC)
	earlyMorning := time.Date(2025, time.March, 10, 0, 5, 0, 0, time.UTC)

	res := tracker.CalculateStreakUpdate(2, &lateNight, earlyMorning, 0)
	require.Equal(t, 3, res.NewStreak, "ten minutes across midnight is the next day")

	sameDayLate := time.Date(2025, time.March, 10, 23, 59, 0, 0, time.UTC)
	res = tracker.CalculateStreakUpdate(3, &earlyMorning, sameDayLate, 0)
	require.Equal(t, 3, res.NewStreak)
	require.False(t, res.StreakIncreased)
}

func TestDateDiffIsAbsoluteAndLocationAware(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	utc := NewTracker(clock.NewFixed(now))
	jst := NewTracker(clock.NewFixed(now), WithLocation(tokyo))

	a := time.Date(2025, time.March, 9, 14, 0, 0, 0, time.UTC) // Mar 9 23:00 JST
	b := time.Date(2025, time.March, 9, 16, 0, 0, 0, time.UTC) // Mar 10 01:00 JST

	assert.Equal(t, 0, utc.DateDiff(a, b))
	assert.Equal(t, 1, jst.DateDiff(a, b))
	assert.Equal(t, 1, jst.DateDiff(b, a))
}

func TestDateDiffAcrossDST(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	tracker := NewTracker(clock.NewFixed(now), WithLocation(berlin))
	before := time.Date(2025, time.March, 29, 12, 0, 0, 0, berlin)
	after := time.Date(2025, time.March, 30, 12, 0, 0, 0, berlin)

	require.Equal(t, 1, tracker.DateDiff(before, after))
}

func TestMilestonesReportedOnIncreaseOnly(t *testing.T) {
	tracker := newTestTracker()

	for _, m := range Milestones {
		res := tracker.CalculateStreakUpdate(m-1, daysAgo(1), now, 0)
		require.NotNil(t, res.MilestoneReached, "milestone %d", m)
		assert.Equal(t, m, *res.MilestoneReached)
	}

	res := tracker.CalculateStreakUpdate(7, daysAgo(0), now, 0)
	assert.Nil(t, res.MilestoneReached, "same-day workout does not re-report a milestone")

	res = tracker.CalculateStreakUpdate(2, daysAgo(5), now, 0)
	assert.Nil(t, res.MilestoneReached, "never reported on a break")

	res = tracker.CalculateStreakUpdate(9, daysAgo(1), now, 0)
	assert.Nil(t, res.MilestoneReached)
}

func TestRestDaysUsedResetsOnCycleBoundary(t *testing.T) {
	tracker := newTestTracker()

	// 10 days with one rest day used; a rest-day jump to 12 starts a fresh cycle.
	res := tracker.CalculateStreakUpdate(10, daysAgo(2), now, 0)
	require.True(t, res.RestDayUsed)
	require.Equal(t, 12, res.NewStreak)
	require.Equal(t, 0, res.RestDaysUsed)

	// A normal increment onto a multiple of six also resets.
	res = tracker.CalculateStreakUpdate(17, daysAgo(1), now, 1)
	require.Equal(t, 18, res.NewStreak)
	require.Equal(t, 0, res.RestDaysUsed)

	// Otherwise the counter persists.
	res = tracker.CalculateStreakUpdate(13, daysAgo(1), now, 1)
	require.Equal(t, 14, res.NewStreak)
	require.Equal(t, 1, res.RestDaysUsed)
}

func TestRestDaysAvailableBounds(t *testing.T) {
	for streak := 0; streak <= 40; streak++ {
		for used := 0; used <= 8; used++ {
			got := RestDaysAvailable(used, streak)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, streak/RestDayCycle)
		}
	}
	assert.Equal(t, 2, RestDaysAvailable(0, 12))
	assert.Equal(t, 1, RestDaysAvailable(1, 12))
	assert.Equal(t, 0, RestDaysAvailable(3, 12))
	assert.Equal(t, 0, RestDaysAvailable(-1, 5))
	assert.True(t, CanUseRestDay(0, 6))
	assert.False(t, CanUseRestDay(0, 5))
	assert.False(t, CanUseRestDay(1, 11))
}

func TestApplyKeepsLongestAndNewestDate(t *testing.T) {
	last := now.AddDate(0, 0, -1)
	record := domain.StreakRecord{UserID: "u1", CurrentStreak: 12, LongestStreak: 20, LastWorkoutDate: &last}

	out := Apply(record, UpdateResult{NewStreak: 13}, now)
	require.Equal(t, 13, out.CurrentStreak)
	require.Equal(t, 20, out.LongestStreak)
	require.Equal(t, now, *out.LastWorkoutDate)

	older := now.AddDate(0, 0, -3)
	out = Apply(out, UpdateResult{NewStreak: 1, StreakBroken: true}, older)
	require.Equal(t, now, *out.LastWorkoutDate, "older workouts never rewind the last date")

	out = Apply(domain.StreakRecord{}, UpdateResult{NewStreak: 1}, now)
	require.Equal(t, 1, out.LongestStreak)
	require.Equal(t, "", out.UserID)
	require.Equal(t, 12, record.CurrentStreak, "input record is not mutated")
}
