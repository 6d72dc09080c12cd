// Package cli implements fitproofctl, an audit and debugging tool for points, streaks and sync conflicts.
package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"example.com/fitproof/internal/config"
	"example.com/fitproof/internal/points"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	PointsConfig string
	Format       string // "json" | "text"
	Timezone     string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for fitproofctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fitproofctl",
		Short: "Inspect workout points, streaks and sync conflicts",
		Long: `fitproofctl runs the server's points, streak and conflict rules locally.

Use it to explain a points total, reconstruct a streak from history,
or preview how an offline session would be reconciled with the stored one.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := opts.location(); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.PointsConfig, "points-config", "", "TOML file overriding default points rules")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Timezone, "timezone", "UTC", "time zone for calendar days and weekends")

	cmd.AddCommand(NewPointsCommand(opts))
	cmd.AddCommand(NewStreakCommand(opts))
	cmd.AddCommand(NewConflictCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))

	return cmd
}

func (o *RootOptions) location() (*time.Location, error) {
	return config.Config{Timezone: o.Timezone}.Location()
}

func (o *RootOptions) pointsConfig() (points.Config, error) {
	return config.LoadPointsConfig(o.PointsConfig)
}

// parseInstant parses an RFC 3339 flag value, falling back to the current time when empty.
func parseInstant(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", value, err)
	}
	return ts, nil
}
