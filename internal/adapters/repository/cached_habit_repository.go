package repository

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/logger"
	"github.com/comitanigiacomo/kanso-tracker/internal/metrics"
)

var _ domain.HabitRepository = (*CachedHabitRepository)(nil)

const DefaultHabitListTTL = 30 * time.Minute

// Bump when the cached JSON shape of domain.Habit changes.
const habitCacheVersion = "v2"

func habitListKey(userID string) string { return "kanso:" + habitCacheVersion + ":habits:" + userID }
func habitKey(id string) string         { return "kanso:" + habitCacheVersion + ":habit:" + id }

// CachedHabitRepository caches each user's habit list and single habits in
// Redis. Analytics reads a habit on every report, so both lookups are
// covered. Any successful write drops the affected keys; Redis failures
// fall through to the wrapped store.
type CachedHabitRepository struct {
	next  domain.HabitRepository
	cache redis.Cmdable
	ttl   time.Duration
}

func NewCachedHabitRepository(next domain.HabitRepository, cache redis.Cmdable, ttl time.Duration) *CachedHabitRepository {
	if ttl <= 0 {
		ttl = DefaultHabitListTTL
	}
	return &CachedHabitRepository{next: next, cache: cache, ttl: ttl}
}

// load decodes key into dst. A false return means the caller must go to
// the store; corrupted entries are dropped on the way.
func (r *CachedHabitRepository) load(ctx context.Context, key string, dst any) bool {
	val, err := r.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(val, dst); err == nil {
			metrics.RecordCache("habits", true)
			return true
		}
		logger.Warn("corrupted habit cache entry, dropping", "key", key)
		r.cache.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		logger.Warn("habit cache read failed", "key", key, "err", err)
	}
	metrics.RecordCache("habits", false)
	return false
}

func (r *CachedHabitRepository) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl).Err(); err != nil {
		logger.Warn("habit cache write failed", "key", key, "err", err)
	}
}

func (r *CachedHabitRepository) invalidate(ctx context.Context, habit *domain.Habit) {
	if err := r.cache.Del(ctx, habitListKey(habit.UserID), habitKey(habit.ID)).Err(); err != nil {
		logger.Warn("habit cache invalidation failed", "user_id", habit.UserID, "habit_id", habit.ID, "err", err)
	}
}

func (r *CachedHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	key := habitListKey(userID)

	var habits []*domain.Habit
	if r.load(ctx, key, &habits) {
		return habits, nil
	}

	habits, err := r.next.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, habits)
	return habits, nil
}

func (r *CachedHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	key := habitKey(id)

	var habit domain.Habit
	if r.load(ctx, key, &habit) {
		return &habit, nil
	}

	found, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, found)
	return found, nil
}

// GetChanges always reads the store; deltas must see tombstones.
func (r *CachedHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	return r.next.GetChanges(ctx, userID, since)
}

func (r *CachedHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Create(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit)
	return nil
}

func (r *CachedHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Update(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit)
	return nil
}

func (r *CachedHabitRepository) Delete(ctx context.Context, id string) error {
	habit, lookupErr := r.next.GetByID(ctx, id)
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	if lookupErr == nil {
		r.invalidate(ctx, habit)
	}
	return nil
}

func (r *CachedHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	if err := r.next.UpdateStreaks(ctx, id, current, longest); err != nil {
		return err
	}
	if habit, err := r.next.GetByID(ctx, id); err == nil {
		r.invalidate(ctx, habit)
	}
	return nil
}
