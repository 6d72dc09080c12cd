package domain

import (
	"context"
	"time"

	"example.com/fitproof/internal/events"
)

// SyncOutcome is everything a single sync item writes. Implementations persist it atomically.
type SyncOutcome struct {
	Session WorkoutSession
	// Insert is true when the session was not stored before this sync.
	Insert bool
	// ExpectedUpdatedAt guards updates: the write fails with ErrStaleWrite when the stored
	// session's UpdatedAt no longer matches.
	ExpectedUpdatedAt time.Time
	// Streak is nil when the user's streak counters are unchanged.
	Streak *StreakRecord
	// ExpectedStreakUpdatedAt guards the streak write the same way ExpectedUpdatedAt guards
	// the session: nil means no counters were stored when they were read.
	ExpectedStreakUpdatedAt *time.Time
	Events []events.Envelope
}

// SyncRepository captures the persistence operations the sync orchestrator relies on.
// GetSession returns ErrSessionNotFound for unknown ids; GetStreak returns nil for users
// without counters.
type SyncRepository interface {
	GetSession(ctx context.Context, sessionID string) (*WorkoutSession, error)
	GetStreak(ctx context.Context, userID string) (*StreakRecord, error)
	CountCompletedSessions(ctx context.Context, userID string) (int, error)
	CountCompletedSessionsBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
	ListCompletionTimes(ctx context.Context, userID string) ([]time.Time, error)
	ApplyOutcome(ctx context.Context, outcome SyncOutcome) error
}

// ExerciseLookup resolves catalog entries, returning ErrExerciseNotFound for unknown ids.
type ExerciseLookup interface {
	GetExercise(ctx context.Context, exerciseID string) (Exercise, error)
}
