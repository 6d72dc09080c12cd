package points

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeReplacesWholeSections(t *testing.T) {
	base := DefaultConfig()

	merged := base.Merge(Overrides{
		StreakBonus: &StreakBonus{Tiers: []StreakTier{{MinDays: 5, Percent: 15}}},
	})

	// The override is not deep-merged: the 30- and 7-day tiers are gone.
	require.Equal(t, []StreakTier{{MinDays: 5, Percent: 15}}, merged.StreakBonus.Tiers)
	require.Equal(t, base.PerfectForm, merged.PerfectForm)
	require.Equal(t, base.Milestones, merged.Milestones)
	require.Equal(t, base.Multipliers, merged.Multipliers)
}

func TestMergeSectionWithZeroValuesIsNotDeepMerged(t *testing.T) {
	merged := DefaultConfig().Merge(Overrides{Multipliers: &Multipliers{Event: 2.0}})

	require.Equal(t, 2.0, merged.Multipliers.Event)
	require.Equal(t, 0.0, merged.Multipliers.Weekend, "weekend multiplier must be re-specified")
}

func TestMergeDoesNotMutateBase(t *testing.T) {
	base := DefaultConfig()
	ov := Overrides{Milestones: &MilestoneBonus{Milestones: []Milestone{{Workouts: 3, Points: 30}}}}

	merged := base.Merge(ov)
	ov.Milestones.Milestones[0].Points = 9999

	require.Len(t, base.Milestones.Milestones, 6)
	require.Equal(t, 30, merged.Milestones.Milestones[0].Points)
}

func TestMergeEmptyOverridesIsIdentity(t *testing.T) {
	require.Equal(t, DefaultConfig(), DefaultConfig().Merge(Overrides{}))
}
