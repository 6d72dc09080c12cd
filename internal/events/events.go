// Package events defines the payloads the sync worker publishes through the outbox.
package events

import (
	"fmt"
	"time"
)

// Event types.
const (
	TypeSessionSynced    = "session.synced"
	TypeStreakUpdated    = "streak.updated"
	TypeConflictDetected = "sync.conflict_detected"

	// TypeSyncBatch is the inbound message carrying a device's offline sessions.
	TypeSyncBatch = "session.sync_batch"
)

// Metadata describes how to route an event type.
type Metadata struct {
	Topic         string
	AggregateType string
}

var catalog = map[string]Metadata{
	TypeSessionSynced:    {Topic: "workout_session_events", AggregateType: "workout_session"},
	TypeStreakUpdated:    {Topic: "streak_events", AggregateType: "streak"},
	TypeConflictDetected: {Topic: "sync_conflicts", AggregateType: "workout_session"},
}

// Lookup returns routing metadata for an event type.
func Lookup(eventType string) (Metadata, error) {
	meta, ok := catalog[eventType]
	if !ok {
		return Metadata{}, fmt.Errorf("unknown event type: %s", eventType)
	}
	return meta, nil
}

// Envelope is one event queued for the outbox alongside a session write.
// Version identifies the aggregate state the event describes, so a replayed
// sync that changes nothing produces the same key and is written once.
type Envelope struct {
	Type         string
	AggregateID  string
	PartitionKey string
	Version      string
	OccurredAt   time.Time
	Payload      any
}

// DedupeKey identifies the event for downstream idempotency. Envelopes without a
// Version fall back to OccurredAt.
func (e Envelope) DedupeKey() string {
	version := e.Version
	if version == "" {
		version = fmt.Sprint(e.OccurredAt.UnixNano())
	}
	return e.AggregateID + ":" + e.Type + ":" + version
}

// SessionSynced is emitted for every persisted sync item.
type SessionSynced struct {
	SessionID        string     `json:"session_id"`
	UserID           string     `json:"user_id"`
	ExerciseID       string     `json:"exercise_id"`
	TotalReps        int        `json:"total_reps"`
	ValidReps        int        `json:"valid_reps"`
	TotalPoints      int        `json:"total_points"`
	PointsAwarded    int        `json:"points_awarded"`
	ClaimedPoints    int        `json:"claimed_points"`
	IsCompleted      bool       `json:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ConflictStrategy string     `json:"conflict_strategy,omitempty"`
	ValidationErrors []string   `json:"validation_errors,omitempty"`
	SyncedAt         time.Time  `json:"synced_at"`
}

// StreakUpdated is emitted when a completed session changes a user's streak counters.
type StreakUpdated struct {
	UserID           string    `json:"user_id"`
	PreviousStreak   int       `json:"previous_streak"`
	CurrentStreak    int       `json:"current_streak"`
	LongestStreak    int       `json:"longest_streak"`
	StreakBroken     bool      `json:"streak_broken"`
	RestDayUsed      bool      `json:"rest_day_used"`
	MilestoneReached *int      `json:"milestone_reached,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// ConflictDetected surfaces an offline-edit conflict so clients can show a notice.
type ConflictDetected struct {
	SessionID         string    `json:"session_id"`
	UserID            string    `json:"user_id"`
	Fields            []string  `json:"conflict_fields"`
	Strategy          string    `json:"strategy"`
	RecommendedAction string    `json:"recommended_action"`
	ServerUpdatedAt   time.Time `json:"server_updated_at"`
	ClientUpdatedAt   time.Time `json:"client_updated_at"`
	Message           string    `json:"message"`
	DetectedAt        time.Time `json:"detected_at"`
}
