// Package syncer orchestrates bulk sync of offline-recorded workout sessions.
//
// Each item is resolved against the stored session, scored, folded into the user's streak
// and written in one compare-and-swap guarded step. Items for the same user run one at a
// time in recording order; different users run in parallel. A failed item never stops
// the rest of its batch.
package syncer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"example.com/fitproof/internal/clock"
	"example.com/fitproof/internal/domain"
	"example.com/fitproof/internal/observability"
	"example.com/fitproof/internal/points"
	"example.com/fitproof/internal/streak"
)

const (
	defaultConcurrency = 4
	// maxAttempts bounds re-reads after a concurrent write to the same session.
	maxAttempts = 3
)

// Service sequences the points, streak and conflict components for each synced session.
type Service struct {
	repo        domain.SyncRepository
	exercises   domain.ExerciseLookup
	calc        *points.Calculator
	tracker     *streak.Tracker
	clock       clock.Clock
	logger      logrus.FieldLogger
	concurrency int
	locks       *keyedMutex
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithLogger overrides the default logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConcurrency bounds how many users are processed in parallel within a batch.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService constructs a Service.
func NewService(repo domain.SyncRepository, exercises domain.ExerciseLookup, calc *points.Calculator, tracker *streak.Tracker, clk clock.Clock, opts ...Option) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	s := &Service{
		repo:        repo,
		exercises:   exercises,
		calc:        calc,
		tracker:     tracker,
		clock:       clk,
		logger:      logrus.StandardLogger().WithField("component", "syncer"),
		concurrency: defaultConcurrency,
		locks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncBatch processes every payload and reports per-item outcomes.
// The returned result has one item per payload, in input order.
func (s *Service) SyncBatch(ctx context.Context, payloads []domain.SyncWorkoutSessionPayload) BatchResult {
	return s.SyncBatchWithID(ctx, uuid.NewString(), payloads)
}

// SyncBatchWithID is SyncBatch with a caller-supplied batch id, e.g. from an inbound message.
func (s *Service) SyncBatchWithID(ctx context.Context, batchID string, payloads []domain.SyncWorkoutSessionPayload) BatchResult {
	start := time.Now()
	result := BatchResult{
		BatchID: batchID,
		Items:   make([]ItemResult, len(payloads)),
	}
	logger := s.logger.WithField("batch_id", batchID)

	groups := groupByUser(payloads)
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, group := range groups {
		g.Go(func() error {
			unlock := s.locks.Lock(group.userID)
			defer unlock()
			for _, idx := range group.indices {
				if err := ctx.Err(); err != nil {
					result.Items[idx] = ItemResult{SessionID: payloads[idx].ID, UserID: payloads[idx].UserID, Err: err}
					continue
				}
				result.Items[idx] = s.syncItem(ctx, logger, payloads[idx])
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, item := range result.Items {
		switch {
		case item.Err != nil:
			result.Failed++
			observability.RecordSyncItem(observability.OutcomeFailed)
		case len(item.Flagged) > 0:
			result.Succeeded++
			result.Flagged++
			observability.RecordSyncItem(observability.OutcomeFlagged)
		default:
			result.Succeeded++
			observability.RecordSyncItem(observability.OutcomeSynced)
		}
	}
	observability.ObserveBatch(time.Since(start))

	entry := logger.WithFields(logrus.Fields{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"flagged":   result.Flagged,
	})
	if result.Failed > 0 {
		entry.WithError(result.Err()).Warn(result.Summary())
	} else {
		entry.Info(result.Summary())
	}
	return result
}

// CurrentStreak reconstructs a user's streak from their completed sessions.
func (s *Service) CurrentStreak(ctx context.Context, userID string) (streak.State, error) {
	history, err := s.repo.ListCompletionTimes(ctx, userID)
	if err != nil {
		return streak.State{}, err
	}
	return s.tracker.CalculateStreak(history), nil
}

// PreviewPoints returns the bonus-free points a session would earn right now.
func (s *Service) PreviewPoints(ctx context.Context, exerciseID string, validReps, totalReps int) (points.Result, error) {
	ex, err := s.exercises.GetExercise(ctx, exerciseID)
	if err != nil {
		return points.Result{}, err
	}
	return s.calc.Calculate(ex, validReps, totalReps, nil), nil
}

type userGroup struct {
	userID  string
	indices []int
}

// groupByUser orders each user's items by recording time so streaks fold in order.
func groupByUser(payloads []domain.SyncWorkoutSessionPayload) []userGroup {
	byUser := make(map[string][]int)
	for i, p := range payloads {
		byUser[p.UserID] = append(byUser[p.UserID], i)
	}

	groups := make([]userGroup, 0, len(byUser))
	for userID, indices := range byUser {
		sort.SliceStable(indices, func(a, b int) bool {
			pa, pb := payloads[indices[a]], payloads[indices[b]]
			if !pa.CreatedAt.Equal(pb.CreatedAt) {
				return pa.CreatedAt.Before(pb.CreatedAt)
			}
			if !pa.UpdatedAt.Equal(pb.UpdatedAt) {
				return pa.UpdatedAt.Before(pb.UpdatedAt)
			}
			return pa.ID < pb.ID
		})
		groups = append(groups, userGroup{userID: userID, indices: indices})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].userID < groups[j].userID })
	return groups
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
