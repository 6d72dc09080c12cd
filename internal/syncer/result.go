package syncer

import (
	"fmt"

	"go.uber.org/multierr"

	"example.com/fitproof/internal/conflict"
	"example.com/fitproof/internal/points"
	"example.com/fitproof/internal/streak"
)

// ItemResult is the outcome of syncing one session.
type ItemResult struct {
	SessionID string
	UserID    string
	// Created is true when the session was first stored by this sync.
	Created bool
	// PointsAwarded is non-zero only on the sync that completes the session.
	PointsAwarded int
	TotalPoints   int
	Points        *points.Result
	Conflict      *conflict.Info
	Streak        *streak.UpdateResult
	// Flagged lists why the points check capped this session's points. The session
	// is still stored and counts as succeeded.
	Flagged []string
	Err     error
}

// OK reports whether the item was persisted.
func (r ItemResult) OK() bool {
	return r.Err == nil
}

// BatchResult aggregates item outcomes for one bulk sync.
type BatchResult struct {
	BatchID   string
	Items     []ItemResult
	Succeeded int
	Failed    int
	// Flagged counts succeeded items whose points were capped.
	Flagged int
}

// Summary renders "N out of M succeeded".
func (b BatchResult) Summary() string {
	return fmt.Sprintf("%d out of %d succeeded", b.Succeeded, len(b.Items))
}

// Err combines every item failure, or returns nil when all items succeeded.
func (b BatchResult) Err() error {
	var err error
	for _, item := range b.Items {
		if item.Err != nil {
			err = multierr.Append(err, fmt.Errorf("session %s: %w", item.SessionID, item.Err))
		}
	}
	return err
}
