//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/fitproof/internal/domain"
	"example.com/fitproof/internal/events"
)

func newTestRepository(t *testing.T) (*Repository, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("fitness"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	for _, name := range []string{"0001_init.up.sql", "0002_session_validation.up.sql"} {
		contents, err := os.ReadFile(resolvePath(t, "../../../db/migrations/"+name))
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(contents))
		require.NoError(t, err)
	}

	return NewRepository(pool), pool
}

func TestRepositorySessionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, pool := newTestRepository(t)

	require.NoError(t, repo.UpsertExercise(ctx, domain.Exercise{ID: "pushups", Name: "Push-ups", PointsPerRep: 2}))
	ex, err := repo.GetExercise(ctx, "pushups")
	require.NoError(t, err)
	require.Equal(t, 2, ex.PointsPerRep)

	_, err = repo.GetExercise(ctx, "burpees")
	require.ErrorIs(t, err, domain.ErrExerciseNotFound)

	userID := uuid.NewString()
	created := time.Now().UTC().Truncate(time.Microsecond)
	session := domain.WorkoutSession{
		ID:         uuid.NewString(),
		UserID:     userID,
		ExerciseID: "pushups",
		TotalReps:  5,
		ValidReps:  5,
		CreatedAt:  created,
		UpdatedAt:  created,
	}

	_, err = repo.GetSession(ctx, session.ID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	require.NoError(t, repo.ApplyOutcome(ctx, domain.SyncOutcome{
		Session: session,
		Insert:  true,
		Events: []events.Envelope{{
			Type:         events.TypeSessionSynced,
			AggregateID:  session.ID,
			PartitionKey: userID,
			OccurredAt:   created,
			Payload:      events.SessionSynced{SessionID: session.ID, UserID: userID},
		}},
	}))

	err = repo.ApplyOutcome(ctx, domain.SyncOutcome{Session: session, Insert: true})
	require.ErrorIs(t, err, domain.ErrStaleWrite)

	completedAt := created.Add(time.Minute)
	updated := session
	updated.TotalReps, updated.ValidReps, updated.TotalPoints = 10, 10, 74
	updated.IsCompleted = true
	updated.CompletedAt = &completedAt
	updated.UpdatedAt = completedAt
	streakRecord := domain.StreakRecord{UserID: userID, CurrentStreak: 1, LongestStreak: 1, LastWorkoutDate: &completedAt, UpdatedAt: completedAt}

	require.NoError(t, repo.ApplyOutcome(ctx, domain.SyncOutcome{
		Session:           updated,
		ExpectedUpdatedAt: created,
		Streak:            &streakRecord,
	}))

	err = repo.ApplyOutcome(ctx, domain.SyncOutcome{Session: updated, ExpectedUpdatedAt: created})
	require.ErrorIs(t, err, domain.ErrStaleWrite)

	stored, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 74, stored.TotalPoints)
	require.True(t, stored.IsCompleted)
	require.True(t, stored.CompletedAt.Equal(completedAt))

	record, err := repo.GetStreak(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1, record.CurrentStreak)

	count, err := repo.CountCompletedSessions(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	sameDay, err := repo.CountCompletedSessionsBetween(ctx, userID, completedAt.Add(-time.Hour), completedAt.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, sameDay)

	times, err := repo.ListCompletionTimes(ctx, userID)
	require.NoError(t, err)
	require.Len(t, times, 1)

	var outboxRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE aggregate_id=$1`, session.ID).Scan(&outboxRows))
	require.Equal(t, 1, outboxRows)
}

func TestRepositoryFlaggedSessionAndStreakGuard(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	require.NoError(t, repo.UpsertExercise(ctx, domain.Exercise{ID: "pushups", Name: "Push-ups", PointsPerRep: 2}))

	userID := uuid.NewString()
	at := time.Now().UTC().Truncate(time.Microsecond)
	session := domain.WorkoutSession{
		ID:               uuid.NewString(),
		UserID:           userID,
		ExerciseID:       "pushups",
		TotalReps:        8,
		InvalidReps:      8,
		IsCompleted:      true,
		CompletedAt:      &at,
		CreatedAt:        at,
		UpdatedAt:        at,
		ValidationErrors: []string{"total points 50 exceed maximum of 0 for 0 valid reps"},
	}
	first := domain.StreakRecord{UserID: userID, CurrentStreak: 1, LongestStreak: 1, LastWorkoutDate: &at, UpdatedAt: at}

	require.NoError(t, repo.ApplyOutcome(ctx, domain.SyncOutcome{Session: session, Insert: true, Streak: &first}))

	stored, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, session.ValidationErrors, stored.ValidationErrors)

	// a second first-time insert loses to the row written above
	other := session
	other.ID = uuid.NewString()
	other.ValidationErrors = nil
	err = repo.ApplyOutcome(ctx, domain.SyncOutcome{Session: other, Insert: true, Streak: &first})
	require.ErrorIs(t, err, domain.ErrStaleWrite)
	_, err = repo.GetSession(ctx, other.ID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	next := first
	next.CurrentStreak, next.LongestStreak = 2, 2
	next.UpdatedAt = at.Add(time.Minute)
	stale := at.Add(-time.Minute)
	err = repo.ApplyOutcome(ctx, domain.SyncOutcome{Session: other, Insert: true, Streak: &next, ExpectedStreakUpdatedAt: &stale})
	require.ErrorIs(t, err, domain.ErrStaleWrite)

	require.NoError(t, repo.ApplyOutcome(ctx, domain.SyncOutcome{Session: other, Insert: true, Streak: &next, ExpectedStreakUpdatedAt: &at}))

	record, err := repo.GetStreak(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 2, record.CurrentStreak)

	clean, err := repo.GetSession(ctx, other.ID)
	require.NoError(t, err)
	require.Nil(t, clean.ValidationErrors)
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
