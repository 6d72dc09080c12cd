package domain

import "time"

// StreakRecord holds the per-user streak counters persisted between syncs.
type StreakRecord struct {
	UserID          string     `json:"user_id" yaml:"user_id"`
	CurrentStreak   int        `json:"current_streak" yaml:"current_streak"`
	LongestStreak   int        `json:"longest_streak" yaml:"longest_streak"`
	LastWorkoutDate *time.Time `json:"last_workout_date,omitempty" yaml:"last_workout_date,omitempty"`
	RestDaysUsed    int        `json:"rest_days_used" yaml:"rest_days_used"`
	UpdatedAt       time.Time  `json:"updated_at" yaml:"updated_at"`
}
