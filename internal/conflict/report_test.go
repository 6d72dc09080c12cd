package conflict

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestReportGolden(t *testing.T) {
	client, server := sessionPair(10 * time.Second)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "report_merge_total_reps", []byte(Report(DetectConflict(client, server))))
}

func TestReportWithoutConflict(t *testing.T) {
	client, server := sessionPair(time.Second)

	report := Report(DetectConflict(client, server))

	require.Contains(t, report, "No conflict for session sess-1.")
}

func TestRecommendedActionCoversEveryStrategy(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range []Strategy{StrategyServerWins, StrategyClientWins, StrategyMerge, StrategyManual} {
		action := RecommendedAction(s)
		require.NotEmpty(t, action)
		require.False(t, seen[action], "duplicate action for %s", s)
		seen[action] = true
	}
}
