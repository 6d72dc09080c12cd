package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"example.com/fitproof/internal/clock"
	"example.com/fitproof/internal/streak"
)

// StreakHistory is the YAML input of the streak command.
type StreakHistory struct {
	Completed []time.Time `yaml:"completed"`
}

// StreakReport is the JSON shape of the streak command.
type StreakReport struct {
	State   streak.State `json:"state"`
	Message string       `json:"message"`
}

// NewStreakCommand creates the streak command.
func NewStreakCommand(rootOpts *RootOptions) *cobra.Command {
	var now string

	cmd := &cobra.Command{
		Use:   "streak <history.yaml>",
		Short: "Reconstruct a streak from completed workout times",
		Long: `Replay a user's completed workout timestamps and print the resulting streak.

The file lists RFC 3339 timestamps under "completed". Order does not matter.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreak(rootOpts, args[0], now, cmd)
		},
	}

	cmd.Flags().StringVar(&now, "now", "", "RFC 3339 evaluation time (defaults to now)")

	return cmd
}

func runStreak(rootOpts *RootOptions, path, now string, cmd *cobra.Command) error {
	var history StreakHistory
	if err := readYAML(path, &history); err != nil {
		return err
	}

	loc, err := rootOpts.location()
	if err != nil {
		return err
	}
	at, err := parseInstant(now)
	if err != nil {
		return err
	}

	tracker := streak.NewTracker(clock.NewFixed(at), streak.WithLocation(loc))
	state := tracker.CalculateStreak(history.Completed)
	message := streak.Message(state)

	lines := []string{
		fmt.Sprintf("Current streak: %d", state.CurrentStreak),
		fmt.Sprintf("Longest streak: %d", state.LongestStreak),
	}
	if state.LastWorkoutDate != nil {
		lines = append(lines, "Last workout: "+state.LastWorkoutDate.In(loc).Format(time.RFC3339))
	}
	lines = append(lines,
		fmt.Sprintf("Rest days: %d used, %d available", state.RestDaysUsed, state.RestDaysAvailable),
		fmt.Sprintf("Status: %s", state.Status),
		fmt.Sprintf("Days until break: %d", state.DaysUntilBreak),
		message,
	)

	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(lines, StreakReport{State: state, Message: message})
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
