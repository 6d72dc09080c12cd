package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"example.com/fitproof/internal/clock"
	"example.com/fitproof/internal/domain"
	"example.com/fitproof/internal/points"
)

type pointsOptions struct {
	exercise      string
	pointsPerRep  int
	validReps     int
	totalReps     int
	streak        int
	firstToday    bool
	totalWorkouts int
	preview       bool
	at            string
}

// PointsReport is the JSON shape of the points command.
type PointsReport struct {
	Exercise   domain.Exercise   `json:"exercise"`
	Result     points.Result     `json:"result"`
	Validation points.Validation `json:"validation"`
}

// NewPointsCommand creates the points command.
func NewPointsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &pointsOptions{}

	cmd := &cobra.Command{
		Use:   "points",
		Short: "Explain the points a workout earns",
		Long: `Compute points for a workout with the server's rules and print the breakdown.

Without --points-per-rep the exercise's family default is used (push-ups 2, sit-ups 1,
squats 2, anything else 1). --preview drops every bonus, matching the in-progress view.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoints(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.exercise, "exercise", "push-ups", "exercise name")
	cmd.Flags().IntVar(&opts.pointsPerRep, "points-per-rep", 0, "catalog points per rep (0 uses the family default)")
	cmd.Flags().IntVar(&opts.validReps, "valid", 0, "valid reps")
	cmd.Flags().IntVar(&opts.totalReps, "total", 0, "total reps (defaults to --valid)")
	cmd.Flags().IntVar(&opts.streak, "streak", 0, "current streak in days")
	cmd.Flags().BoolVar(&opts.firstToday, "first-today", false, "first completed workout of the day")
	cmd.Flags().IntVar(&opts.totalWorkouts, "total-workouts", 0, "lifetime completed workouts including this one")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "omit bonuses")
	cmd.Flags().StringVar(&opts.at, "at", "", "RFC 3339 completion time (defaults to now)")

	return cmd
}

func runPoints(rootOpts *RootOptions, opts *pointsOptions, cmd *cobra.Command) error {
	if opts.validReps < 0 || opts.totalReps < 0 {
		return fmt.Errorf("rep counts must be non-negative")
	}
	total := opts.totalReps
	if total == 0 {
		total = opts.validReps
	}
	if opts.validReps > total {
		return fmt.Errorf("valid reps %d exceed total reps %d", opts.validReps, total)
	}

	cfg, err := rootOpts.pointsConfig()
	if err != nil {
		return err
	}
	loc, err := rootOpts.location()
	if err != nil {
		return err
	}
	at, err := parseInstant(opts.at)
	if err != nil {
		return err
	}

	calc := points.NewCalculator(cfg, clock.NewFixed(at), points.WithLocation(loc))
	exercise := domain.Exercise{ID: opts.exercise, Name: opts.exercise, PointsPerRep: opts.pointsPerRep}

	var bonus *points.BonusInput
	if !opts.preview {
		bonus = &points.BonusInput{
			CurrentStreak:          opts.streak,
			IsFirstWorkoutToday:    opts.firstToday,
			TotalWorkoutsCompleted: opts.totalWorkouts,
		}
	}

	result := calc.Calculate(exercise, opts.validReps, total, bonus)
	validation := points.Validate(result, opts.validReps)

	lines := points.FormatBreakdown(result)
	if validation.IsValid {
		lines = append(lines, "Validation: ok")
	} else {
		lines = append(lines, "Validation: flagged ("+validation.Reason+")")
	}

	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(lines, PointsReport{Exercise: exercise, Result: result, Validation: validation})
}
