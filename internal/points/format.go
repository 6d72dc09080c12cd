package points

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatBreakdown renders a result as display lines for audit and debugging output.
func FormatBreakdown(result Result) []string {
	b := result.Breakdown
	lines := []string{fmt.Sprintf("Base points: %d", b.BasePoints)}

	bonuses := []struct {
		label  string
		amount int
	}{
		{"Streak bonus", b.StreakBonus},
		{"Perfect form bonus", b.PerfectFormBonus},
		{"First workout bonus", b.FirstWorkoutBonus},
		{"Milestone bonus", b.MilestoneBonus},
	}
	for _, bonus := range bonuses {
		if bonus.amount != 0 {
			lines = append(lines, fmt.Sprintf("%s: +%d", bonus.label, bonus.amount))
		}
	}

	if b.Multiplier > 1.0 {
		lines = append(lines, fmt.Sprintf("Multiplier: %sx", strconv.FormatFloat(b.Multiplier, 'f', -1, 64)))
	}

	lines = append(lines, fmt.Sprintf("Total: %d", result.TotalPoints))

	if len(b.AppliedBonuses) > 0 {
		lines = append(lines, "Bonuses: "+strings.Join(b.AppliedBonuses, ", "))
	}
	return lines
}
