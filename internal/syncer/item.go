package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/fitproof/internal/conflict"
	"example.com/fitproof/internal/domain"
	"example.com/fitproof/internal/events"
	"example.com/fitproof/internal/observability"
	"example.com/fitproof/internal/points"
	"example.com/fitproof/internal/streak"
)

func (s *Service) syncItem(ctx context.Context, logger logrus.FieldLogger, p domain.SyncWorkoutSessionPayload) ItemResult {
	logger = logger.WithFields(logrus.Fields{
		"session_id": p.ID,
		"user_id":    p.UserID,
	})
	if err := p.Validate(); err != nil {
		logger.WithError(err).Warn("sync item rejected")
		return ItemResult{SessionID: p.ID, UserID: p.UserID, Err: err}
	}

	var (
		res ItemResult
		err error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err = s.attempt(ctx, p)
		if !errors.Is(err, domain.ErrStaleWrite) {
			break
		}
		logger.WithField("attempt", attempt).Debug("stored session changed underneath sync; retrying")
	}
	res.SessionID, res.UserID, res.Err = p.ID, p.UserID, err

	if err != nil {
		logger.WithError(err).Warn("sync item failed")
		return res
	}
	if res.Conflict != nil {
		observability.RecordConflict(string(res.Conflict.Strategy))
		logger.WithFields(logrus.Fields{
			"strategy": res.Conflict.Strategy,
			"fields":   res.Conflict.Fields,
		}).Info("sync conflict resolved")
	}
	if len(res.Flagged) > 0 {
		logger.WithField("validation_errors", res.Flagged).Warn("session points capped")
	}
	observability.RecordPointsAwarded(res.PointsAwarded)
	recordStreakTransition(res.Streak)
	return res
}

// attempt runs one read-resolve-write cycle for a payload.
func (s *Service) attempt(ctx context.Context, p domain.SyncWorkoutSessionPayload) (ItemResult, error) {
	var res ItemResult
	now := s.clock.Now()

	stored, err := s.repo.GetSession(ctx, p.ID)
	insert := errors.Is(err, domain.ErrSessionNotFound)
	switch {
	case insert:
	case err != nil:
		return res, fmt.Errorf("load session: %w", err)
	case stored.UserID != p.UserID:
		return res, fmt.Errorf("%w: %s", domain.ErrOwnerMismatch, p.ID)
	}

	var next domain.WorkoutSession
	if insert {
		next = domain.NewSessionFromPayload(p)
		res.Created = true
	} else {
		next = s.resolve(p, *stored, &res)
	}
	// UpdatedAt tracks the newest edit seen from either side, so replaying the same
	// payload finds no conflict and awards nothing twice.
	if insert || p.UpdatedAt.After(stored.UpdatedAt) {
		next.UpdatedAt = p.UpdatedAt
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}

	ex, err := s.exercises.GetExercise(ctx, next.ExerciseID)
	if err != nil {
		return res, fmt.Errorf("lookup exercise: %w", err)
	}

	outcome := domain.SyncOutcome{Insert: insert}
	if !insert {
		outcome.ExpectedUpdatedAt = stored.UpdatedAt
	}

	alreadyCompleted := !insert && stored.IsCompleted
	switch {
	case alreadyCompleted:
		next.TotalPoints = stored.TotalPoints
	case next.IsCompleted:
		if next.CompletedAt == nil {
			ts := p.UpdatedAt
			next.CompletedAt = &ts
		}
		completedAt := *next.CompletedAt

		update, record, expected, err := s.advanceStreak(ctx, p.UserID, completedAt)
		if err != nil {
			return res, err
		}
		bonus, err := s.bonusInput(ctx, p.UserID, completedAt, record.CurrentStreak)
		if err != nil {
			return res, err
		}
		result := s.calc.At(completedAt).Calculate(ex, next.ValidReps, next.TotalReps, bonus)
		next.TotalPoints, next.ValidationErrors = enforceCeiling(result, next.ValidReps)
		res.Points = &result
		res.PointsAwarded = next.TotalPoints
		res.Streak = &update
		outcome.Streak = &record
		outcome.ExpectedStreakUpdatedAt = expected
		if update.NewStreak != update.PreviousStreak || update.StreakBroken || update.RestDayUsed {
			outcome.Events = append(outcome.Events, streakEvent(record, update, now))
		}
	default:
		result := s.calc.At(p.UpdatedAt).Calculate(ex, next.ValidReps, next.TotalReps, nil)
		next.TotalPoints, next.ValidationErrors = enforceCeiling(result, next.ValidReps)
		res.Points = &result
	}
	res.TotalPoints = next.TotalPoints
	res.Flagged = next.ValidationErrors

	outcome.Session = next
	outcome.Events = append([]events.Envelope{sessionEvent(next, p, res, now)}, outcome.Events...)
	if res.Conflict != nil {
		outcome.Events = append(outcome.Events, conflictEvent(p, *res.Conflict, now))
	}

	if err := s.repo.ApplyOutcome(ctx, outcome); err != nil {
		return res, fmt.Errorf("persist session: %w", err)
	}
	observability.RecordSessionSynced(now)
	return res, nil
}

// resolve merges the payload into the stored session. Completion is sticky: once the
// server has a completed session it stays completed with its original timestamp.
func (s *Service) resolve(p domain.SyncWorkoutSessionPayload, stored domain.WorkoutSession, res *ItemResult) domain.WorkoutSession {
	info := conflict.DetectConflict(p, stored)
	strategy := conflict.StrategyClientWins
	if info.HasConflict {
		res.Conflict = &info
		strategy = info.Strategy
	}
	merged := conflict.ResolveConflict(p, stored, strategy)

	next := stored
	next.TotalReps = merged.TotalReps
	next.ValidReps = merged.ValidReps
	next.InvalidReps = merged.InvalidReps
	next.TotalPoints = merged.TotalPoints
	next.DurationSeconds = merged.DurationSeconds
	next.IsCompleted = merged.IsCompleted
	next.CompletedAt = merged.CompletedAt
	if stored.IsCompleted {
		next.IsCompleted = true
		next.CompletedAt = stored.CompletedAt
	}
	return next
}

// advanceStreak folds a completion into the user's counters. A completion older than the
// last recorded workout day is replayed together with the stored history so the result
// matches a full reconstruction. The returned timestamp is the stored counters' UpdatedAt,
// nil when the user has no counters yet.
func (s *Service) advanceStreak(ctx context.Context, userID string, completedAt time.Time) (streak.UpdateResult, domain.StreakRecord, *time.Time, error) {
	stored, err := s.repo.GetStreak(ctx, userID)
	if err != nil {
		return streak.UpdateResult{}, domain.StreakRecord{}, nil, fmt.Errorf("load streak: %w", err)
	}
	record := domain.StreakRecord{UserID: userID}
	var expected *time.Time
	if stored != nil {
		record = *stored
		ts := stored.UpdatedAt
		expected = &ts
	}

	var (
		update streak.UpdateResult
		next   domain.StreakRecord
	)
	if record.LastWorkoutDate != nil && s.tracker.StartOfDay(completedAt).Before(s.tracker.StartOfDay(*record.LastWorkoutDate)) {
		history, err := s.repo.ListCompletionTimes(ctx, userID)
		if err != nil {
			return streak.UpdateResult{}, domain.StreakRecord{}, nil, fmt.Errorf("load history: %w", err)
		}
		update, next = s.tracker.Backfill(history, completedAt, record)
	} else {
		update = s.tracker.CalculateStreakUpdate(record.CurrentStreak, record.LastWorkoutDate, completedAt, record.RestDaysUsed)
		next = streak.Apply(record, update, completedAt)
	}
	next.UserID = userID
	next.UpdatedAt = s.clock.Now()
	if expected != nil && !next.UpdatedAt.After(*expected) {
		// keep the guard column moving when two syncs land on the same clock reading
		next.UpdatedAt = expected.Add(time.Microsecond)
	}
	return update, next, expected, nil
}

// enforceCeiling returns the points to store and why they were capped. A session over
// the per-rep ceiling keeps its base points, clamped to the ceiling, and loses its bonus.
func enforceCeiling(result points.Result, validReps int) (int, []string) {
	v := points.Validate(result, validReps)
	if v.IsValid {
		return result.TotalPoints, nil
	}
	return min(max(result.BasePoints, 0), validReps*points.MaxPointsPerValidRep), []string{v.Reason}
}

// bonusInput gathers bonus inputs for a session completing at completedAt. The session
// itself is not yet stored as completed, so it is added to the lifetime count.
func (s *Service) bonusInput(ctx context.Context, userID string, completedAt time.Time, currentStreak int) (*points.BonusInput, error) {
	dayStart := s.tracker.StartOfDay(completedAt)
	sameDay, err := s.repo.CountCompletedSessionsBetween(ctx, userID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("count same-day workouts: %w", err)
	}
	total, err := s.repo.CountCompletedSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count workouts: %w", err)
	}
	return &points.BonusInput{
		CurrentStreak:          currentStreak,
		IsFirstWorkoutToday:    sameDay == 0,
		TotalWorkoutsCompleted: total + 1,
	}, nil
}

func sessionEvent(session domain.WorkoutSession, p domain.SyncWorkoutSessionPayload, res ItemResult, now time.Time) events.Envelope {
	payload := events.SessionSynced{
		SessionID:        session.ID,
		UserID:           session.UserID,
		ExerciseID:       session.ExerciseID,
		TotalReps:        session.TotalReps,
		ValidReps:        session.ValidReps,
		TotalPoints:      session.TotalPoints,
		PointsAwarded:    res.PointsAwarded,
		ClaimedPoints:    p.Points,
		IsCompleted:      session.IsCompleted,
		CompletedAt:      session.CompletedAt,
		ValidationErrors: session.ValidationErrors,
		SyncedAt:         now,
	}
	if res.Conflict != nil {
		payload.ConflictStrategy = string(res.Conflict.Strategy)
	}
	return events.Envelope{
		Type:         events.TypeSessionSynced,
		AggregateID:  session.ID,
		PartitionKey: session.UserID,
		Version:      sessionVersion(session),
		OccurredAt:   now,
		Payload:      payload,
	}
}

// sessionVersion identifies the stored state a session.synced event describes, so
// replaying a payload that changed nothing yields the same dedupe key.
func sessionVersion(session domain.WorkoutSession) string {
	return fmt.Sprintf("%d/%d/%d/%d/%d/%t", session.UpdatedAt.UnixNano(), session.TotalReps, session.ValidReps,
		session.TotalPoints, session.DurationSeconds, session.IsCompleted)
}

func streakEvent(record domain.StreakRecord, update streak.UpdateResult, now time.Time) events.Envelope {
	return events.Envelope{
		Type:         events.TypeStreakUpdated,
		AggregateID:  record.UserID,
		PartitionKey: record.UserID,
		Version:      strconv.FormatInt(record.UpdatedAt.UnixNano(), 10),
		OccurredAt:   now,
		Payload: events.StreakUpdated{
			UserID:           record.UserID,
			PreviousStreak:   update.PreviousStreak,
			CurrentStreak:    record.CurrentStreak,
			LongestStreak:    record.LongestStreak,
			StreakBroken:     update.StreakBroken,
			RestDayUsed:      update.RestDayUsed,
			MilestoneReached: update.MilestoneReached,
			OccurredAt:       now,
		},
	}
}

func conflictEvent(p domain.SyncWorkoutSessionPayload, info conflict.Info, now time.Time) events.Envelope {
	fields := make([]string, len(info.Fields))
	for i, f := range info.Fields {
		fields[i] = string(f)
	}
	return events.Envelope{
		Type:         events.TypeConflictDetected,
		AggregateID:  p.ID,
		PartitionKey: p.UserID,
		Version:      fmt.Sprintf("%d/%d", info.ServerUpdatedAt.UnixNano(), info.ClientUpdatedAt.UnixNano()),
		OccurredAt:   now,
		Payload: events.ConflictDetected{
			SessionID:         p.ID,
			UserID:            p.UserID,
			Fields:            fields,
			Strategy:          string(info.Strategy),
			RecommendedAction: conflict.RecommendedAction(info.Strategy),
			ServerUpdatedAt:   info.ServerUpdatedAt,
			ClientUpdatedAt:   info.ClientUpdatedAt,
			Message:           info.Message,
			DetectedAt:        now,
		},
	}
}

func recordStreakTransition(update *streak.UpdateResult) {
	if update == nil {
		return
	}
	switch {
	case update.StreakBroken:
		observability.RecordStreakTransition("broken")
	case update.StreakIncreased:
		observability.RecordStreakTransition("increased")
	}
	if update.RestDayUsed {
		observability.RecordStreakTransition("rest_day")
	}
	if update.MilestoneReached != nil {
		observability.RecordStreakTransition("milestone")
	}
}
