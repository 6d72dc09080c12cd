package catalog

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/fitproof/internal/domain"
	"example.com/fitproof/internal/persistence/memory"
)

type countingLookup struct {
	upstream domain.ExerciseLookup
	calls    atomic.Int32
}

func (c *countingLookup) GetExercise(ctx context.Context, exerciseID string) (domain.Exercise, error) {
	c.calls.Add(1)
	return c.upstream.GetExercise(ctx, exerciseID)
}

func newLookup() *countingLookup {
	store := memory.NewStore()
	for _, ex := range memory.DefaultExercises() {
		store.PutExercise(ex)
	}
	return &countingLookup{upstream: store}
}

func TestCacheServesRepeatLookups(t *testing.T) {
	lookup := newLookup()
	cache := NewCache(lookup, 0)
	ctx := context.Background()

	first, err := cache.GetExercise(ctx, "pushups")
	require.NoError(t, err)
	second, err := cache.GetExercise(ctx, "pushups")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 2, second.PointsPerRep)
	require.EqualValues(t, 1, lookup.calls.Load())

	hits, misses := cache.Stats()
	require.EqualValues(t, 1, hits)
	require.EqualValues(t, 1, misses)
}

func TestCacheDoesNotCacheMisses(t *testing.T) {
	lookup := newLookup()
	cache := NewCache(lookup, 0)
	ctx := context.Background()

	_, err := cache.GetExercise(ctx, "burpees")
	require.ErrorIs(t, err, domain.ErrExerciseNotFound)
	_, err = cache.GetExercise(ctx, "burpees")
	require.ErrorIs(t, err, domain.ErrExerciseNotFound)

	require.EqualValues(t, 2, lookup.calls.Load())
}

func TestCacheInvalidate(t *testing.T) {
	lookup := newLookup()
	cache := NewCache(lookup, 0)
	ctx := context.Background()

	_, err := cache.GetExercise(ctx, "squats")
	require.NoError(t, err)
	cache.Invalidate("squats")
	_, err = cache.GetExercise(ctx, "squats")
	require.NoError(t, err)

	require.EqualValues(t, 2, lookup.calls.Load())
}
