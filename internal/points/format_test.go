package points

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestFormatBreakdownGolden(t *testing.T) {
	calc := newTestCalculator(saturday)
	result := calc.Calculate(pushups, 10, 10, &BonusInput{
		CurrentStreak:          7,
		IsFirstWorkoutToday:    true,
		TotalWorkoutsCompleted: 50,
	})

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "breakdown_weekend_all_bonuses", []byte(strings.Join(FormatBreakdown(result), "\n")+"\n"))
}

func TestFormatBreakdownPreview(t *testing.T) {
	calc := newTestCalculator(wednesday)
	lines := FormatBreakdown(calc.Calculate(pushups, 10, 10, nil))

	require.Equal(t, []string{"Base points: 20", "Total: 20"}, lines)
}
