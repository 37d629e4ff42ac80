package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

func ptr[T any](v T) *T {
	return &v
}

type MockRepo struct {
	store         map[string]*domain.Habit
	simulateError error
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		store: make(map[string]*domain.Habit),
	}
}

func (m *MockRepo) Create(ctx context.Context, habit *domain.Habit) error {
	if m.simulateError != nil {
		return m.simulateError
	}

	if existing, exists := m.store[habit.ID]; exists && existing.DeletedAt == nil {
		return errors.New("duplicate key value violates unique constraint")
	}

	if habit.Version == 0 {
		habit.Version = 1
	}
	clone := *habit
	m.store[habit.ID] = &clone
	return nil
}

func (m *MockRepo) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	if m.simulateError != nil {
		return nil, m.simulateError
	}
	h, ok := m.store[id]
	if !ok || h.DeletedAt != nil {
		return nil, domain.ErrHabitNotFound
	}
	clone := *h
	return &clone, nil
}

func (m *MockRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	if m.simulateError != nil {
		return nil, m.simulateError
	}
	var list []*domain.Habit
	for _, h := range m.store {
		if h.UserID == userID && h.DeletedAt == nil {
			clone := *h
			list = append(list, &clone)
		}
	}
	return list, nil
}

func (m *MockRepo) Update(ctx context.Context, habit *domain.Habit) error {
	if m.simulateError != nil {
		return m.simulateError
	}

	existing, ok := m.store[habit.ID]
	if !ok || existing.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}
	if existing.Version != habit.Version {
		return domain.ErrHabitConflict
	}

	habit.Version++
	clone := *habit
	m.store[habit.ID] = &clone
	return nil
}

func (m *MockRepo) Delete(ctx context.Context, id string) error {
	if m.simulateError != nil {
		return m.simulateError
	}
	h, ok := m.store[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	now := time.Now().UTC()
	h.DeletedAt = &now
	h.Version++
	h.UpdatedAt = now
	return nil
}

func (m *MockRepo) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	var changes []*domain.Habit
	for _, h := range m.store {
		if h.UserID == userID && h.UpdatedAt.After(since) {
			clone := *h
			changes = append(changes, &clone)
		}
	}
	return changes, nil
}

func (m *MockRepo) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	if m.simulateError != nil {
		return m.simulateError
	}
	h, ok := m.store[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	h.CurrentStreak = current
	h.LongestStreak = longest
	h.UpdatedAt = time.Now().UTC()
	return nil
}

// MockCheckInRepo is a map-backed check-in log.
type MockCheckInRepo struct {
	store map[string]*domain.CheckIn
	calls int
}

func NewMockCheckInRepo() *MockCheckInRepo {
	return &MockCheckInRepo{store: make(map[string]*domain.CheckIn)}
}

func (m *MockCheckInRepo) Create(ctx context.Context, c *domain.CheckIn) error {
	if _, exists := m.store[c.ID]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	clone := *c
	m.store[c.ID] = &clone
	return nil
}

func (m *MockCheckInRepo) GetByID(ctx context.Context, id string) (*domain.CheckIn, error) {
	c, ok := m.store[id]
	if !ok || c.DeletedAt != nil {
		return nil, domain.ErrCheckInNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *MockCheckInRepo) Delete(ctx context.Context, id string) error {
	c, ok := m.store[id]
	if !ok || c.DeletedAt != nil {
		return domain.ErrCheckInNotFound
	}
	now := time.Now().UTC()
	c.DeletedAt = &now
	c.UpdatedAt = now
	c.Version++
	return nil
}

func (m *MockCheckInRepo) filter(keep func(c *domain.CheckIn) bool) []*domain.CheckIn {
	var out []*domain.CheckIn
	for _, c := range m.store {
		if keep(c) {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedAt.Before(out[j].CheckedAt) })
	return out
}

func (m *MockCheckInRepo) ListByHabitID(ctx context.Context, habitID string) ([]*domain.CheckIn, error) {
	m.calls++
	return m.filter(func(c *domain.CheckIn) bool { return c.HabitID == habitID && c.DeletedAt == nil }), nil
}

func (m *MockCheckInRepo) ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*domain.CheckIn, error) {
	return m.filter(func(c *domain.CheckIn) bool {
		return c.HabitID == habitID && c.DeletedAt == nil && !c.CheckedAt.Before(from) && c.CheckedAt.Before(to)
	}), nil
}

func (m *MockCheckInRepo) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.CheckIn, error) {
	return m.filter(func(c *domain.CheckIn) bool {
		return c.UserID == userID && c.DeletedAt == nil && !c.CheckedAt.Before(from) && c.CheckedAt.Before(to)
	}), nil
}

func (m *MockCheckInRepo) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.CheckIn, error) {
	return m.filter(func(c *domain.CheckIn) bool { return c.UserID == userID && c.UpdatedAt.After(since) }), nil
}

// MockHabitRepo is the testify flavour, for asserting calls.
type MockHabitRepo struct {
	mock.Mock
}

func (m *MockHabitRepo) Create(ctx context.Context, habit *domain.Habit) error {
	return m.Called(ctx, habit).Error(0)
}

func (m *MockHabitRepo) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Habit), args.Error(1)
}

func (m *MockHabitRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Habit), args.Error(1)
}

func (m *MockHabitRepo) Update(ctx context.Context, habit *domain.Habit) error {
	return m.Called(ctx, habit).Error(0)
}

func (m *MockHabitRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockHabitRepo) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Habit), args.Error(1)
}

func (m *MockHabitRepo) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	return m.Called(ctx, id, current, longest).Error(0)
}

type recordingWorker struct {
	mu   sync.Mutex
	jobs []string
}

func (w *recordingWorker) Enqueue(habitID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.jobs = append(w.jobs, habitID)
}

type mapReportCache struct {
	data map[string]*analytics.Report
	gets int
	hits int
}

func newMapReportCache() *mapReportCache {
	return &mapReportCache{data: make(map[string]*analytics.Report)}
}

func (c *mapReportCache) Get(ctx context.Context, key string) (*analytics.Report, bool) {
	c.gets++
	r, ok := c.data[key]
	if ok {
		c.hits++
	}
	return r, ok
}

func (c *mapReportCache) Set(ctx context.Context, key string, r *analytics.Report) error {
	c.data[key] = r
	return nil
}
