package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"example.com/fitproof/internal/clock"
	"example.com/fitproof/internal/domain"
	"example.com/fitproof/internal/persistence/memory"
	"example.com/fitproof/internal/points"
	"example.com/fitproof/internal/streak"
	"example.com/fitproof/internal/syncer"
)

// SyncScenario is the YAML input of the sync command: optional stored state plus one batch.
type SyncScenario struct {
	Exercises []domain.Exercise                  `yaml:"exercises"`
	Sessions  []domain.WorkoutSession            `yaml:"sessions"`
	Streaks   []domain.StreakRecord              `yaml:"streaks"`
	Batch     []domain.SyncWorkoutSessionPayload `yaml:"batch"`
}

// SyncItemReport is one item in the sync command's JSON output.
type SyncItemReport struct {
	SessionID     string   `json:"session_id"`
	UserID        string   `json:"user_id"`
	Created       bool     `json:"created"`
	PointsAwarded int      `json:"points_awarded"`
	TotalPoints   int      `json:"total_points"`
	Strategy      string   `json:"conflict_strategy,omitempty"`
	Flagged       []string `json:"validation_errors,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// SyncReport is the JSON shape of the sync command.
type SyncReport struct {
	Summary string                  `json:"summary"`
	Items   []SyncItemReport        `json:"items"`
	Streaks map[string]streak.State `json:"streaks"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	var now string

	cmd := &cobra.Command{
		Use:   "sync <scenario.yaml>",
		Short: "Dry-run a bulk sync against in-memory state",
		Long: `Load stored sessions and streaks into memory, sync one batch and print each outcome.

The file may list "exercises" (the seed catalog is used when absent), stored "sessions"
and "streaks", and the payloads to sync under "batch".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, args[0], now, cmd)
		},
	}

	cmd.Flags().StringVar(&now, "now", "", "RFC 3339 server time for the sync (defaults to now)")

	return cmd
}

func runSync(rootOpts *RootOptions, path, now string, cmd *cobra.Command) error {
	var scenario SyncScenario
	if err := readYAML(path, &scenario); err != nil {
		return err
	}

	cfg, err := rootOpts.pointsConfig()
	if err != nil {
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

	store := memory.NewStore()
	exercises := scenario.Exercises
	if len(exercises) == 0 {
		exercises = memory.DefaultExercises()
	}
	for _, ex := range exercises {
		store.PutExercise(ex)
	}
	for _, session := range scenario.Sessions {
		store.PutSession(session)
	}
	for _, record := range scenario.Streaks {
		store.PutStreak(record)
	}

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	clk := clock.NewFixed(at)
	svc := syncer.NewService(
		store,
		store,
		points.NewCalculator(cfg, clk, points.WithLocation(loc)),
		streak.NewTracker(clk, streak.WithLocation(loc)),
		clk,
		syncer.WithLogger(quiet),
	)

	result := svc.SyncBatchWithID(cmd.Context(), "cli", scenario.Batch)

	report := SyncReport{
		Summary: result.Summary(),
		Items:   make([]SyncItemReport, 0, len(result.Items)),
		Streaks: make(map[string]streak.State),
	}
	var lines []string
	for _, item := range result.Items {
		entry := SyncItemReport{
			SessionID:     item.SessionID,
			UserID:        item.UserID,
			Created:       item.Created,
			PointsAwarded: item.PointsAwarded,
			TotalPoints:   item.TotalPoints,
			Flagged:       item.Flagged,
		}
		if item.Conflict != nil && item.Conflict.HasConflict {
			entry.Strategy = string(item.Conflict.Strategy)
		}
		if item.Err != nil {
			entry.Error = item.Err.Error()
		}
		report.Items = append(report.Items, entry)
		lines = append(lines, itemLine(entry))
	}

	users := make([]string, 0)
	seen := make(map[string]bool)
	for _, p := range scenario.Batch {
		if p.UserID != "" && !seen[p.UserID] {
			seen[p.UserID] = true
			users = append(users, p.UserID)
		}
	}
	sort.Strings(users)
	for _, userID := range users {
		state, err := svc.CurrentStreak(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("streak for %s: %w", userID, err)
		}
		report.Streaks[userID] = state
		lines = append(lines, fmt.Sprintf("Streak %s: current %d, longest %d (%s)", userID, state.CurrentStreak, state.LongestStreak, state.Status))
	}
	lines = append(lines, result.Summary())

	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(lines, report)
}

func itemLine(item SyncItemReport) string {
	if item.Error != "" {
		return fmt.Sprintf("%s: failed: %s", item.SessionID, item.Error)
	}
	verb := "updated"
	if item.Created {
		verb = "created"
	}
	line := fmt.Sprintf("%s: %s, +%d points (total %d)", item.SessionID, verb, item.PointsAwarded, item.TotalPoints)
	if item.Strategy != "" {
		line += ", conflict resolved by " + item.Strategy
	}
	if len(item.Flagged) > 0 {
		line += ", flagged: " + strings.Join(item.Flagged, "; ")
	}
	return line
}
