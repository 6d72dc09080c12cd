// Package postgres provides pgx-backed persistence for sessions, streaks, exercises and outbox events.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitproof/internal/domain"
	"example.com/fitproof/internal/events"
)

const uniqueViolation = "23505"

// Repository implements domain.SyncRepository and domain.ExerciseLookup.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `session_id, user_id, exercise_id, total_reps, valid_reps, invalid_reps, total_points,
        duration_seconds, is_completed, completed_at, created_at, updated_at, validation_errors`

// GetExercise implements domain.ExerciseLookup.
func (r *Repository) GetExercise(ctx context.Context, exerciseID string) (domain.Exercise, error) {
	const query = `SELECT exercise_id, name, points_per_rep FROM exercises WHERE exercise_id=$1`

	var ex domain.Exercise
	err := r.pool.QueryRow(ctx, query, exerciseID).Scan(&ex.ID, &ex.Name, &ex.PointsPerRep)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Exercise{}, fmt.Errorf("%w: %s", domain.ErrExerciseNotFound, exerciseID)
	}
	if err != nil {
		return domain.Exercise{}, err
	}
	return ex, nil
}

// UpsertExercise adds or updates a catalog entry.
func (r *Repository) UpsertExercise(ctx context.Context, ex domain.Exercise) error {
	const stmt = `INSERT INTO exercises (exercise_id, name, points_per_rep) VALUES ($1,$2,$3)
        ON CONFLICT (exercise_id) DO UPDATE SET name = EXCLUDED.name, points_per_rep = EXCLUDED.points_per_rep`
	_, err := r.pool.Exec(ctx, stmt, ex.ID, ex.Name, ex.PointsPerRep)
	return err
}

// GetSession implements domain.SyncRepository.
func (r *Repository) GetSession(ctx context.Context, sessionID string) (*domain.WorkoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM workout_sessions WHERE session_id=$1`

	session, err := scanSession(r.pool.QueryRow(ctx, query, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetStreak implements domain.SyncRepository.
func (r *Repository) GetStreak(ctx context.Context, userID string) (*domain.StreakRecord, error) {
	const query = `SELECT user_id, current_streak, longest_streak, last_workout_date, rest_days_used, updated_at
        FROM streaks WHERE user_id=$1`

	var record domain.StreakRecord
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&record.UserID,
		&record.CurrentStreak,
		&record.LongestStreak,
		&record.LastWorkoutDate,
		&record.RestDaysUsed,
		&record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CountCompletedSessions implements domain.SyncRepository.
func (r *Repository) CountCompletedSessions(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM workout_sessions WHERE user_id=$1 AND is_completed`

	var count int
	err := r.pool.QueryRow(ctx, query, userID).Scan(&count)
	return count, err
}

// CountCompletedSessionsBetween counts completions in [from, to).
func (r *Repository) CountCompletedSessionsBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM workout_sessions
        WHERE user_id=$1 AND is_completed AND completed_at >= $2 AND completed_at < $3`

	var count int
	err := r.pool.QueryRow(ctx, query, userID, from, to).Scan(&count)
	return count, err
}

// ListCompletionTimes returns completion timestamps oldest-first.
func (r *Repository) ListCompletionTimes(ctx context.Context, userID string) ([]time.Time, error) {
	const query = `SELECT completed_at FROM workout_sessions
        WHERE user_id=$1 AND is_completed AND completed_at IS NOT NULL
        ORDER BY completed_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// ApplyOutcome writes the session, streak counters and outbox events in one transaction.
// Session and streak updates are guarded by the updated_at each was read with.
func (r *Repository) ApplyOutcome(ctx context.Context, outcome domain.SyncOutcome) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	s := outcome.Session
	if outcome.Insert {
		insertSession := `INSERT INTO workout_sessions (` + sessionColumns + `)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
		_, err = tx.Exec(ctx, insertSession,
			s.ID, s.UserID, s.ExerciseID,
			s.TotalReps, s.ValidReps, s.InvalidReps, s.TotalPoints,
			s.DurationSeconds, s.IsCompleted, s.CompletedAt,
			s.CreatedAt, s.UpdatedAt, validationErrors(s),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("insert session %s: %w", s.ID, domain.ErrStaleWrite)
		}
		if err != nil {
			return err
		}
	} else {
		const updateSession = `UPDATE workout_sessions SET
            total_reps=$2, valid_reps=$3, invalid_reps=$4, total_points=$5, duration_seconds=$6,
            is_completed=$7, completed_at=$8, updated_at=$9, validation_errors=$11
            WHERE session_id=$1 AND updated_at=$10`
		var tag pgconn.CommandTag
		tag, err = tx.Exec(ctx, updateSession,
			s.ID,
			s.TotalReps, s.ValidReps, s.InvalidReps, s.TotalPoints, s.DurationSeconds,
			s.IsCompleted, s.CompletedAt, s.UpdatedAt,
			outcome.ExpectedUpdatedAt, validationErrors(s),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			err = fmt.Errorf("update session %s: %w", s.ID, domain.ErrStaleWrite)
			return err
		}
	}

	if outcome.Streak != nil {
		if err = writeStreak(ctx, tx, *outcome.Streak, outcome.ExpectedStreakUpdatedAt); err != nil {
			return err
		}
	}

	for _, env := range outcome.Events {
		if err = r.insertOutbox(ctx, tx, env); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// writeStreak inserts first-time counters or updates them when updated_at still matches
// expected. Losing either race is reported as a stale write.
func writeStreak(ctx context.Context, tx pgx.Tx, st domain.StreakRecord, expected *time.Time) error {
	const insertStreak = `INSERT INTO streaks (user_id, current_streak, longest_streak, last_workout_date, rest_days_used, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (user_id) DO NOTHING`
	const updateStreak = `UPDATE streaks SET
            current_streak=$2, longest_streak=$3, last_workout_date=$4, rest_days_used=$5, updated_at=$6
            WHERE user_id=$1 AND updated_at=$7`

	var (
		tag pgconn.CommandTag
		err error
	)
	if expected == nil {
		tag, err = tx.Exec(ctx, insertStreak, st.UserID, st.CurrentStreak, st.LongestStreak, st.LastWorkoutDate, st.RestDaysUsed, st.UpdatedAt)
	} else {
		tag, err = tx.Exec(ctx, updateStreak, st.UserID, st.CurrentStreak, st.LongestStreak, st.LastWorkoutDate, st.RestDaysUsed, st.UpdatedAt, *expected)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("write streak %s: %w", st.UserID, domain.ErrStaleWrite)
	}
	return nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, env events.Envelope) error {
	meta, err := events.Lookup(env.Type)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", env.Type, err)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		meta.AggregateType,
		env.AggregateID,
		env.Type,
		meta.Topic,
		env.PartitionKey,
		body,
		env.DedupeKey(),
	)
	return err
}

func scanSession(row pgx.Row) (*domain.WorkoutSession, error) {
	var s domain.WorkoutSession
	if err := row.Scan(
		&s.ID, &s.UserID, &s.ExerciseID,
		&s.TotalReps, &s.ValidReps, &s.InvalidReps, &s.TotalPoints,
		&s.DurationSeconds, &s.IsCompleted, &s.CompletedAt,
		&s.CreatedAt, &s.UpdatedAt, &s.ValidationErrors,
	); err != nil {
		return nil, err
	}
	if len(s.ValidationErrors) == 0 {
		s.ValidationErrors = nil
	}
	return &s, nil
}

// validationErrors keeps the NOT NULL column at '{}' for clean sessions.
func validationErrors(s domain.WorkoutSession) []string {
	if s.ValidationErrors == nil {
		return []string{}
	}
	return s.ValidationErrors
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
