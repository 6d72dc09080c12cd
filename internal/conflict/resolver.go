// Package conflict detects and resolves divergence between a client's offline-recorded
// workout session and the server's stored record of the same session.
//
// Every function here is deterministic and side-effect free. A resolution is always
// produced; surfacing manual conflicts to a person is the caller's job.
package conflict

import (
	"fmt"
	"strings"
	"time"

	"example.com/fitproof/internal/domain"
)

// Strategy names the rule used to reconcile the two sides.
type Strategy string

const (
	StrategyServerWins Strategy = "server_wins"
	StrategyClientWins Strategy = "client_wins"
	StrategyMerge      Strategy = "merge"
	StrategyManual     Strategy = "manual"
)

// IsValid returns true if the strategy is recognized.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyServerWins, StrategyClientWins, StrategyMerge, StrategyManual:
		return true
	default:
		return false
	}
}

// Field is a compared session attribute.
type Field string

const (
	FieldTotalReps       Field = "total_reps"
	FieldValidReps       Field = "valid_reps"
	FieldTotalPoints     Field = "total_points"
	FieldDurationSeconds Field = "duration_seconds"
	FieldIsCompleted     Field = "is_completed"
)

// comparedFields is the diff order; reports list fields in this order.
var comparedFields = []Field{FieldTotalReps, FieldValidReps, FieldTotalPoints, FieldDurationSeconds, FieldIsCompleted}

// IsNumeric reports whether the field is a progress metric (reps, points, duration).
func (f Field) IsNumeric() bool {
	return f != FieldIsCompleted
}

// NearSimultaneousWindow is how far the server may be ahead of the client before differences count as a conflict.
const NearSimultaneousWindow = 5 * time.Second

// Snapshot is one side's view of a session.
type Snapshot struct {
	TotalReps       int        `json:"total_reps"`
	ValidReps       int        `json:"valid_reps"`
	InvalidReps     int        `json:"invalid_reps"`
	TotalPoints     int        `json:"total_points"`
	DurationSeconds int        `json:"duration_seconds"`
	IsCompleted     bool       `json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ClientSnapshot captures a client payload.
func ClientSnapshot(p domain.SyncWorkoutSessionPayload) Snapshot {
	return Snapshot{
		TotalReps:       p.TotalReps,
		ValidReps:       p.ValidReps,
		InvalidReps:     p.InvalidReps,
		TotalPoints:     p.Points,
		DurationSeconds: p.DurationSeconds,
		IsCompleted:     p.IsCompleted,
		UpdatedAt:       p.UpdatedAt,
	}
}

// ServerSnapshot captures a stored session.
func ServerSnapshot(s domain.WorkoutSession) Snapshot {
	return Snapshot{
		TotalReps:       s.TotalReps,
		ValidReps:       s.ValidReps,
		InvalidReps:     serverInvalidReps(s),
		TotalPoints:     s.TotalPoints,
		DurationSeconds: s.DurationSeconds,
		IsCompleted:     s.IsCompleted,
		CompletedAt:     s.CompletedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// Info describes the outcome of conflict detection.
type Info struct {
	SessionID       string    `json:"session_id"`
	HasConflict     bool      `json:"has_conflict"`
	Fields          []Field   `json:"conflict_fields"`
	Strategy        Strategy  `json:"strategy"`
	Client          Snapshot  `json:"client"`
	Server          Snapshot  `json:"server"`
	ServerUpdatedAt time.Time `json:"server_updated_at"`
	ClientUpdatedAt time.Time `json:"client_updated_at"`
	Message         string    `json:"message"`
}

// HasField reports whether f is among the conflicting fields.
func (i Info) HasField(f Field) bool {
	for _, field := range i.Fields {
		if field == f {
			return true
		}
	}
	return false
}

// MergedData is the resolved session state.
type MergedData struct {
	TotalReps       int        `json:"total_reps"`
	ValidReps       int        `json:"valid_reps"`
	InvalidReps     int        `json:"invalid_reps"`
	TotalPoints     int        `json:"total_points"`
	DurationSeconds int        `json:"duration_seconds"`
	IsCompleted     bool       `json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// DetectConflict compares a client payload with the stored session.
//
// When the server's update is at most NearSimultaneousWindow newer than the client's
// (including any time the client is newer), no conflict is reported and the client's
// values may be applied as a normal update.
func DetectConflict(client domain.SyncWorkoutSessionPayload, server domain.WorkoutSession) Info {
	info := Info{
		SessionID:       server.ID,
		Strategy:        StrategyClientWins,
		Client:          ClientSnapshot(client),
		Server:          ServerSnapshot(server),
		ServerUpdatedAt: server.UpdatedAt,
		ClientUpdatedAt: client.UpdatedAt,
		Fields:          []Field{},
	}

	if server.UpdatedAt.Sub(client.UpdatedAt) <= NearSimultaneousWindow {
		info.Message = "Updates are near-simultaneous; no conflict."
		return info
	}

	info.Fields = diffFields(info.Client, info.Server)
	if len(info.Fields) == 0 {
		info.Message = "No conflicting changes."
		return info
	}

	info.HasConflict = true
	info.Strategy = SelectStrategy(info.Fields, info.Client, info.Server)
	names := make([]string, len(info.Fields))
	for i, f := range info.Fields {
		names[i] = string(f)
	}
	info.Message = fmt.Sprintf("Session was changed on another device: %s differ (%s).", strings.Join(names, ", "), info.Strategy)
	return info
}

// SelectStrategy picks a resolution strategy for the given differing fields.
//
// A completion mismatch is won by the completed side. Differences confined to progress
// metrics merge. Anything else keeps the server's record.
func SelectStrategy(fields []Field, client, server Snapshot) Strategy {
	completionDiffers := false
	allNumeric := len(fields) > 0
	for _, f := range fields {
		if f == FieldIsCompleted {
			completionDiffers = true
		}
		if !f.IsNumeric() {
			allNumeric = false
		}
	}

	if completionDiffers && client.IsCompleted != server.IsCompleted {
		if server.IsCompleted {
			return StrategyServerWins
		}
		return StrategyClientWins
	}
	if allNumeric {
		return StrategyMerge
	}
	return StrategyServerWins
}

// ResolveConflict produces the session state for the chosen strategy.
// StrategyManual returns the server's values unchanged pending a user decision.
func ResolveConflict(client domain.SyncWorkoutSessionPayload, server domain.WorkoutSession, strategy Strategy) MergedData {
	switch strategy {
	case StrategyClientWins:
		merged := MergedData{
			TotalReps:       client.TotalReps,
			ValidReps:       client.ValidReps,
			InvalidReps:     client.InvalidReps,
			TotalPoints:     client.Points,
			DurationSeconds: client.DurationSeconds,
			IsCompleted:     client.IsCompleted,
		}
		if client.IsCompleted {
			merged.CompletedAt = completionTime(server, client)
		}
		return merged

	case StrategyMerge:
		merged := MergedData{
			TotalReps:       max(client.TotalReps, server.TotalReps),
			ValidReps:       max(client.ValidReps, server.ValidReps),
			InvalidReps:     max(client.InvalidReps, serverInvalidReps(server)),
			TotalPoints:     max(client.Points, server.TotalPoints),
			DurationSeconds: max(client.DurationSeconds, server.DurationSeconds),
			IsCompleted:     server.IsCompleted || client.IsCompleted,
		}
		if merged.IsCompleted {
			merged.CompletedAt = completionTime(server, client)
		}
		return merged

	default:
		return MergedData{
			TotalReps:       server.TotalReps,
			ValidReps:       server.ValidReps,
			InvalidReps:     serverInvalidReps(server),
			TotalPoints:     server.TotalPoints,
			DurationSeconds: server.DurationSeconds,
			IsCompleted:     server.IsCompleted,
			CompletedAt:     copyTime(server.CompletedAt),
		}
	}
}

func diffFields(client, server Snapshot) []Field {
	out := make([]Field, 0, len(comparedFields))
	for _, f := range comparedFields {
		var differs bool
		switch f {
		case FieldTotalReps:
			differs = client.TotalReps != server.TotalReps
		case FieldValidReps:
			differs = client.ValidReps != server.ValidReps
		case FieldTotalPoints:
			differs = client.TotalPoints != server.TotalPoints
		case FieldDurationSeconds:
			differs = client.DurationSeconds != server.DurationSeconds
		case FieldIsCompleted:
			differs = client.IsCompleted != server.IsCompleted
		}
		if differs {
			out = append(out, f)
		}
	}
	return out
}

// serverInvalidReps falls back to totalReps-validReps when the record does not track invalid reps.
func serverInvalidReps(s domain.WorkoutSession) int {
	if s.InvalidReps > 0 {
		return s.InvalidReps
	}
	if d := s.TotalReps - s.ValidReps; d > 0 {
		return d
	}
	return 0
}

// completionTime prefers the server's completion timestamp, else the client's update time.
func completionTime(server domain.WorkoutSession, client domain.SyncWorkoutSessionPayload) *time.Time {
	if server.CompletedAt != nil {
		return copyTime(server.CompletedAt)
	}
	if client.IsCompleted {
		ts := client.UpdatedAt
		return &ts
	}
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
