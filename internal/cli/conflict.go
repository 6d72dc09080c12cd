package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"example.com/fitproof/internal/conflict"
	"example.com/fitproof/internal/domain"
)

// ConflictCase is the YAML input of the conflict command.
type ConflictCase struct {
	Client domain.SyncWorkoutSessionPayload `yaml:"client"`
	Server domain.WorkoutSession            `yaml:"server"`
}

// ConflictReport is the JSON shape of the conflict command.
type ConflictReport struct {
	Conflict conflict.Info       `json:"conflict"`
	Applied  conflict.Strategy   `json:"applied_strategy"`
	Merged   conflict.MergedData `json:"merged"`
}

// NewConflictCommand creates the conflict command.
func NewConflictCommand(rootOpts *RootOptions) *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "conflict <case.yaml>",
		Short: "Preview how a client payload reconciles with the stored session",
		Long: `Detect conflicts between a client payload and the stored session, then resolve them.

The file carries the payload under "client" and the stored session under "server".
--strategy overrides the selected strategy for the resolution step.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConflict(rootOpts, args[0], conflict.Strategy(strategy), cmd)
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "force a strategy (server_wins|client_wins|merge|manual)")

	return cmd
}

func runConflict(rootOpts *RootOptions, path string, strategy conflict.Strategy, cmd *cobra.Command) error {
	if strategy != "" && !strategy.IsValid() {
		return fmt.Errorf("invalid strategy %q", strategy)
	}

	var c ConflictCase
	if err := readYAML(path, &c); err != nil {
		return err
	}
	if c.Server.ID == "" {
		c.Server.ID = c.Client.ID
	}

	info := conflict.DetectConflict(c.Client, c.Server)
	applied := info.Strategy
	if strategy != "" {
		applied = strategy
	}
	merged := conflict.ResolveConflict(c.Client, c.Server, applied)

	loc, err := rootOpts.location()
	if err != nil {
		return err
	}

	lines := strings.Split(strings.TrimRight(conflict.Report(info), "\n"), "\n")
	if applied != info.Strategy {
		lines = append(lines, fmt.Sprintf("Applied strategy: %s", applied))
	}
	lines = append(lines, "Merged:", fmt.Sprintf("  reps: %d total, %d valid, %d invalid", merged.TotalReps, merged.ValidReps, merged.InvalidReps),
		fmt.Sprintf("  points: %d", merged.TotalPoints),
		fmt.Sprintf("  duration: %ds", merged.DurationSeconds),
		fmt.Sprintf("  completed: %t", merged.IsCompleted),
	)
	if merged.CompletedAt != nil {
		lines = append(lines, "  completed at: "+merged.CompletedAt.In(loc).Format(time.RFC3339))
	}

	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(lines, ConflictReport{Conflict: info, Applied: applied, Merged: merged})
}
