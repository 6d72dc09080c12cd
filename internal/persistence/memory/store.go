// Package memory provides an in-memory implementation of the sync repository for tests,
// the CLI and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"example.com/fitproof/internal/domain"
	"example.com/fitproof/internal/events"
)

// Store keeps sessions, streak counters, exercises and queued events in maps.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]domain.WorkoutSession
	streaks   map[string]domain.StreakRecord
	exercises map[string]domain.Exercise
	events    []events.Envelope
	dedupe    map[string]struct{}
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		sessions:  make(map[string]domain.WorkoutSession),
		streaks:   make(map[string]domain.StreakRecord),
		exercises: make(map[string]domain.Exercise),
		dedupe:    make(map[string]struct{}),
	}
}

// DefaultExercises is the seed catalog used by local tooling.
func DefaultExercises() []domain.Exercise {
	return []domain.Exercise{
		{ID: "pushups", Name: "Push-ups", PointsPerRep: 2},
		{ID: "situps", Name: "Sit-ups", PointsPerRep: 1},
		{ID: "squats", Name: "Squats", PointsPerRep: 2},
		{ID: "plank-taps", Name: "Plank Shoulder Taps"},
	}
}

// PutExercise adds or replaces a catalog entry.
func (s *Store) PutExercise(ex domain.Exercise) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exercises[ex.ID] = ex
}

// PutSession stores a session as-is, bypassing the compare-and-swap guard.
func (s *Store) PutSession(session domain.WorkoutSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = cloneSession(session)
}

// PutStreak stores streak counters as-is.
func (s *Store) PutStreak(record domain.StreakRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaks[record.UserID] = cloneStreak(record)
}

// GetExercise implements domain.ExerciseLookup.
func (s *Store) GetExercise(_ context.Context, exerciseID string) (domain.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, ok := s.exercises[exerciseID]
	if !ok {
		return domain.Exercise{}, fmt.Errorf("%w: %s", domain.ErrExerciseNotFound, exerciseID)
	}
	return ex, nil
}

// GetSession implements domain.SyncRepository.
func (s *Store) GetSession(_ context.Context, sessionID string) (*domain.WorkoutSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	out := cloneSession(session)
	return &out, nil
}

// GetStreak implements domain.SyncRepository.
func (s *Store) GetStreak(_ context.Context, userID string) (*domain.StreakRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.streaks[userID]
	if !ok {
		return nil, nil
	}
	out := cloneStreak(record)
	return &out, nil
}

// CountCompletedSessions implements domain.SyncRepository.
func (s *Store) CountCompletedSessions(ctx context.Context, userID string) (int, error) {
	times, err := s.ListCompletionTimes(ctx, userID)
	return len(times), err
}

// CountCompletedSessionsBetween counts completions in [from, to).
func (s *Store) CountCompletedSessionsBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	times, err := s.ListCompletionTimes(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, ts := range times {
		if !ts.Before(from) && ts.Before(to) {
			count++
		}
	}
	return count, nil
}

// ListCompletionTimes returns completion timestamps oldest-first.
func (s *Store) ListCompletionTimes(_ context.Context, userID string) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []time.Time
	for _, session := range s.sessions {
		if session.UserID == userID && session.IsCompleted && session.CompletedAt != nil {
			out = append(out, *session.CompletedAt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// ApplyOutcome implements domain.SyncRepository. Session and streak writes are
// compare-and-swap guarded; events whose dedupe key was already written are dropped.
func (s *Store) ApplyOutcome(_ context.Context, outcome domain.SyncOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.sessions[outcome.Session.ID]
	switch {
	case outcome.Insert && exists:
		return fmt.Errorf("insert session %s: %w", outcome.Session.ID, domain.ErrStaleWrite)
	case !outcome.Insert && !exists:
		return fmt.Errorf("update session %s: %w", outcome.Session.ID, domain.ErrSessionNotFound)
	case !outcome.Insert && !current.UpdatedAt.Equal(outcome.ExpectedUpdatedAt):
		return fmt.Errorf("update session %s: %w", outcome.Session.ID, domain.ErrStaleWrite)
	}
	if outcome.Streak != nil {
		stored, ok := s.streaks[outcome.Streak.UserID]
		expected := outcome.ExpectedStreakUpdatedAt
		if ok != (expected != nil) || (ok && !stored.UpdatedAt.Equal(*expected)) {
			return fmt.Errorf("write streak %s: %w", outcome.Streak.UserID, domain.ErrStaleWrite)
		}
	}

	for _, env := range outcome.Events {
		if _, err := events.Lookup(env.Type); err != nil {
			return err
		}
	}

	s.sessions[outcome.Session.ID] = cloneSession(outcome.Session)
	if outcome.Streak != nil {
		s.streaks[outcome.Streak.UserID] = cloneStreak(*outcome.Streak)
	}
	for _, env := range outcome.Events {
		key := env.DedupeKey()
		if _, dup := s.dedupe[key]; dup {
			continue
		}
		s.dedupe[key] = struct{}{}
		s.events = append(s.events, env)
	}
	return nil
}

// Events returns a copy of every event written so far.
func (s *Store) Events() []events.Envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.Envelope(nil), s.events...)
}

// EventsOfType filters Events by type.
func (s *Store) EventsOfType(eventType string) []events.Envelope {
	var out []events.Envelope
	for _, env := range s.Events() {
		if env.Type == eventType {
			out = append(out, env)
		}
	}
	return out
}

func cloneSession(session domain.WorkoutSession) domain.WorkoutSession {
	if session.CompletedAt != nil {
		ts := *session.CompletedAt
		session.CompletedAt = &ts
	}
	session.ValidationErrors = append([]string(nil), session.ValidationErrors...)
	return session
}

func cloneStreak(record domain.StreakRecord) domain.StreakRecord {
	if record.LastWorkoutDate != nil {
		ts := *record.LastWorkoutDate
		record.LastWorkoutDate = &ts
	}
	return record
}
