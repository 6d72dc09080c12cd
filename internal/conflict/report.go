package conflict

import (
	"fmt"
	"strings"
	"time"
)

// RecommendedAction returns client-facing guidance for a strategy.
func RecommendedAction(strategy Strategy) string {
	switch strategy {
	case StrategyServerWins:
		return "Keep the server version and discard the local changes."
	case StrategyClientWins:
		return "Apply the local changes to the server."
	case StrategyMerge:
		return "Combine both versions, keeping the highest reps, points and duration."
	case StrategyManual:
		return "Ask the user which version to keep."
	default:
		return "No action required."
	}
}

// Report renders a human-readable description of a detection result.
func Report(info Info) string {
	var b strings.Builder
	if !info.HasConflict {
		fmt.Fprintf(&b, "No conflict for session %s.\n", info.SessionID)
		fmt.Fprintf(&b, "%s\n", info.Message)
		return b.String()
	}

	fmt.Fprintf(&b, "Conflict report for session %s\n", info.SessionID)
	fmt.Fprintf(&b, "Server updated: %s\n", info.ServerUpdatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Client updated: %s\n", info.ClientUpdatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Time difference: %s\n", info.ServerUpdatedAt.Sub(info.ClientUpdatedAt))
	b.WriteString("Conflicting fields:\n")
	for _, f := range info.Fields {
		fmt.Fprintf(&b, "  %s: server=%s client=%s\n", f, fieldValue(info.Server, f), fieldValue(info.Client, f))
	}
	fmt.Fprintf(&b, "Strategy: %s\n", info.Strategy)
	fmt.Fprintf(&b, "Recommended action: %s\n", RecommendedAction(info.Strategy))
	return b.String()
}

func fieldValue(s Snapshot, f Field) string {
	switch f {
	case FieldTotalReps:
		return fmt.Sprint(s.TotalReps)
	case FieldValidReps:
		return fmt.Sprint(s.ValidReps)
	case FieldTotalPoints:
		return fmt.Sprint(s.TotalPoints)
	case FieldDurationSeconds:
		return fmt.Sprint(s.DurationSeconds)
	case FieldIsCompleted:
		return fmt.Sprint(s.IsCompleted)
	default:
		return ""
	}
}
