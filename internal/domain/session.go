// Package domain defines the shared data model for workout sessions, exercises and streak counters.
//
// Rep counts, points and durations are plain ints. Callers are responsible for handing the
// gamification core non-negative values; the core does not sanitize malformed input.
package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSessionNotFound is returned when a stored session cannot be located.
	ErrSessionNotFound = errors.New("workout session not found")
	// ErrExerciseNotFound is returned when an exercise id is unknown to the catalog.
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrStaleWrite indicates the stored session changed since it was read.
	ErrStaleWrite = errors.New("stored session was modified concurrently")
	// ErrInvalidPayload marks a sync payload that is missing identifiers or carries negative counts.
	ErrInvalidPayload = errors.New("invalid sync payload")
	// ErrOwnerMismatch is returned when a payload targets a session owned by another user.
	ErrOwnerMismatch = errors.New("session belongs to another user")
)

// SyncWorkoutSessionPayload is a session as recorded on a device and submitted during sync.
// ID is stable across retries of the same session.
type SyncWorkoutSessionPayload struct {
	ID              string    `json:"id" yaml:"id"`
	UserID          string    `json:"user_id" yaml:"user_id"`
	ExerciseID      string    `json:"exercise_id" yaml:"exercise_id"`
	TotalReps       int       `json:"total_reps" yaml:"total_reps"`
	ValidReps       int       `json:"valid_reps" yaml:"valid_reps"`
	InvalidReps     int       `json:"invalid_reps" yaml:"invalid_reps"`
	Points          int       `json:"points" yaml:"points"`
	DurationSeconds int       `json:"duration_seconds" yaml:"duration_seconds"`
	IsCompleted     bool      `json:"is_completed" yaml:"is_completed"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`
}

// WorkoutSession is the server's authoritative record of a session.
type WorkoutSession struct {
	ID               string     `json:"id" yaml:"id"`
	UserID           string     `json:"user_id" yaml:"user_id"`
	ExerciseID       string     `json:"exercise_id" yaml:"exercise_id"`
	TotalReps        int        `json:"total_reps" yaml:"total_reps"`
	ValidReps        int        `json:"valid_reps" yaml:"valid_reps"`
	InvalidReps      int        `json:"invalid_reps" yaml:"invalid_reps"`
	TotalPoints      int        `json:"total_points" yaml:"total_points"`
	DurationSeconds  int        `json:"duration_seconds" yaml:"duration_seconds"`
	IsCompleted      bool       `json:"is_completed" yaml:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" yaml:"updated_at"`
	// ValidationErrors lists why the points check flagged the session. A flagged
	// session is stored with capped points rather than refused.
	ValidationErrors []string   `json:"validation_errors,omitempty" yaml:"validation_errors,omitempty"`
}

// NewSessionFromPayload builds a stored record from a first-seen client payload.
func NewSessionFromPayload(p SyncWorkoutSessionPayload) WorkoutSession {
	s := WorkoutSession{
		ID:              p.ID,
		UserID:          p.UserID,
		ExerciseID:      p.ExerciseID,
		TotalReps:       p.TotalReps,
		ValidReps:       p.ValidReps,
		InvalidReps:     p.InvalidReps,
		TotalPoints:     p.Points,
		DurationSeconds: p.DurationSeconds,
		IsCompleted:     p.IsCompleted,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.IsCompleted {
		completedAt := p.UpdatedAt
		s.CompletedAt = &completedAt
	}
	return s
}

// Validate checks the fields the server relies on before any gamification runs.
func (p SyncWorkoutSessionPayload) Validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: missing session id", ErrInvalidPayload)
	case p.UserID == "":
		return fmt.Errorf("%w: missing user id", ErrInvalidPayload)
	case p.ExerciseID == "":
		return fmt.Errorf("%w: missing exercise id", ErrInvalidPayload)
	case p.TotalReps < 0 || p.ValidReps < 0 || p.InvalidReps < 0 || p.DurationSeconds < 0:
		return fmt.Errorf("%w: negative counts", ErrInvalidPayload)
	case p.ValidReps > p.TotalReps:
		return fmt.Errorf("%w: valid reps %d exceed total reps %d", ErrInvalidPayload, p.ValidReps, p.TotalReps)
	case p.UpdatedAt.IsZero():
		return fmt.Errorf("%w: missing updated_at", ErrInvalidPayload)
	}
	return nil
}
