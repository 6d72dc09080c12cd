// Package catalog caches exercise lookups in front of the primary store.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coocood/freecache"
	"github.com/sirupsen/logrus"

	"example.com/fitproof/internal/domain"
)

const (
	defaultCacheBytes = 8 * 1024 * 1024
	defaultTTL        = 10 * time.Minute
)

// Cache wraps an ExerciseLookup with a freecache-backed read-through cache.
// Unknown exercises are not cached.
type Cache struct {
	upstream domain.ExerciseLookup
	cache    *freecache.Cache
	ttl      time.Duration
	logger   logrus.FieldLogger
}

// Option configures optional behaviour for the Cache.
type Option func(*Cache)

// WithTTL sets how long entries live.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache constructs a Cache holding at most sizeBytes of entries.
func NewCache(upstream domain.ExerciseLookup, sizeBytes int, opts ...Option) *Cache {
	if sizeBytes <= 0 {
		sizeBytes = defaultCacheBytes
	}
	c := &Cache{
		upstream: upstream,
		cache:    freecache.NewCache(sizeBytes),
		ttl:      defaultTTL,
		logger:   logrus.StandardLogger().WithField("component", "exercise_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetExercise implements domain.ExerciseLookup.
func (c *Cache) GetExercise(ctx context.Context, exerciseID string) (domain.Exercise, error) {
	key := []byte(exerciseID)
	if raw, err := c.cache.Get(key); err == nil {
		var ex domain.Exercise
		if err := json.Unmarshal(raw, &ex); err == nil {
			return ex, nil
		}
		c.cache.Del(key)
	} else if !errors.Is(err, freecache.ErrNotFound) {
		c.logger.WithError(err).Warn("exercise cache read failed")
	}

	ex, err := c.upstream.GetExercise(ctx, exerciseID)
	if err != nil {
		return domain.Exercise{}, err
	}

	raw, err := json.Marshal(ex)
	if err == nil {
		err = c.cache.Set(key, raw, int(c.ttl.Seconds()))
	}
	if err != nil {
		c.logger.WithError(err).WithField("exercise_id", exerciseID).Warn("exercise cache write failed")
	}
	return ex, nil
}

// Invalidate drops a cached entry, e.g. after the catalog row changes.
func (c *Cache) Invalidate(exerciseID string) {
	c.cache.Del([]byte(exerciseID))
}

// Stats reports cache hits and misses.
func (c *Cache) Stats() (hits, misses int64) {
	return c.cache.HitCount(), c.cache.MissCount()
}
