package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

// Seed is the initial state of a MemoryStore.
type Seed struct {
	Users    []*domain.User
	Habits   []*domain.Habit
	CheckIns []*domain.CheckIn
}

// MemoryStore keeps users, habits and check-ins in maps guarded by a single
// lock. Values are copied in and out so callers never share state with it.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*domain.User
	habits   map[string]*domain.Habit
	checkIns map[string]*domain.CheckIn
	now      func() time.Time
}

func NewMemoryStore(seed Seed) *MemoryStore {
	s := &MemoryStore{
		users:    make(map[string]*domain.User),
		habits:   make(map[string]*domain.Habit),
		checkIns: make(map[string]*domain.CheckIn),
		now:      time.Now,
	}
	for _, u := range seed.Users {
		c := *u
		s.users[u.ID] = &c
	}
	for _, h := range seed.Habits {
		s.habits[h.ID] = cloneHabit(h)
	}
	for _, c := range seed.CheckIns {
		s.checkIns[c.ID] = cloneCheckIn(c)
	}
	return s
}

func (s *MemoryStore) Habits() *MemoryHabitRepository     { return &MemoryHabitRepository{s} }
func (s *MemoryStore) CheckIns() *MemoryCheckInRepository { return &MemoryCheckInRepository{s} }
func (s *MemoryStore) Users() *MemoryUserRepository       { return &MemoryUserRepository{s} }

func cloneHabit(h *domain.Habit) *domain.Habit {
	c := *h
	if h.ReminderTime != nil {
		r := *h.ReminderTime
		c.ReminderTime = &r
	}
	if h.ArchivedAt != nil {
		a := *h.ArchivedAt
		c.ArchivedAt = &a
	}
	if h.DeletedAt != nil {
		d := *h.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}

func cloneCheckIn(in *domain.CheckIn) *domain.CheckIn {
	c := *in
	if in.DeletedAt != nil {
		d := *in.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}

var _ domain.HabitRepository = (*MemoryHabitRepository)(nil)

type MemoryHabitRepository struct {
	s *MemoryStore
}

func (r *MemoryHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	version := 1
	if existing, ok := r.s.habits[habit.ID]; ok {
		if existing.DeletedAt == nil || existing.UserID != habit.UserID {
			return domain.ErrHabitConflict
		}
		version = existing.Version + 1
	}

	habit.Version = version
	habit.DeletedAt = nil
	r.s.habits[habit.ID] = cloneHabit(habit)
	return nil
}

func (r *MemoryHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	h, ok := r.s.habits[id]
	if !ok || h.DeletedAt != nil {
		return nil, domain.ErrHabitNotFound
	}
	return cloneHabit(h), nil
}

func (r *MemoryHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var habits []*domain.Habit
	for _, h := range r.s.habits {
		if h.UserID == userID && h.DeletedAt == nil {
			habits = append(habits, cloneHabit(h))
		}
	}

	sort.Slice(habits, func(i, j int) bool {
		if habits[i].SortOrder != habits[j].SortOrder {
			return habits[i].SortOrder < habits[j].SortOrder
		}
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})

	return habits, nil
}

func (r *MemoryHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.habits[habit.ID]
	if !ok || existing.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}
	if existing.Version != habit.Version {
		return domain.ErrHabitConflict
	}

	habit.Version++
	habit.UpdatedAt = r.s.now().UTC()
	habit.CurrentStreak = existing.CurrentStreak
	habit.LongestStreak = existing.LongestStreak
	r.s.habits[habit.ID] = cloneHabit(habit)
	return nil
}

func (r *MemoryHabitRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	h, ok := r.s.habits[id]
	if !ok || h.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}

	now := r.s.now().UTC()
	h.DeletedAt = &now
	h.UpdatedAt = now
	h.Version++
	return nil
}

func (r *MemoryHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var changes []*domain.Habit
	for _, h := range r.s.habits {
		if h.UserID == userID && h.UpdatedAt.After(since) {
			changes = append(changes, cloneHabit(h))
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].UpdatedAt.Before(changes[j].UpdatedAt) })
	return changes, nil
}

func (r *MemoryHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	h, ok := r.s.habits[id]
	if !ok || h.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}
	h.CurrentStreak = current
	h.LongestStreak = longest
	h.UpdatedAt = r.s.now().UTC()
	return nil
}

var _ domain.CheckInRepository = (*MemoryCheckInRepository)(nil)

type MemoryCheckInRepository struct {
	s *MemoryStore
}

func (r *MemoryCheckInRepository) Create(ctx context.Context, c *domain.CheckIn) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if h, ok := r.s.habits[c.HabitID]; !ok || h.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}
	if existing, ok := r.s.checkIns[c.ID]; ok {
		if existing.DeletedAt == nil || existing.UserID != c.UserID || existing.HabitID != c.HabitID {
			return domain.ErrCheckInConflict
		}
		c.Version = existing.Version + 1
		c.CreatedAt = existing.CreatedAt
	}
	if c.Version == 0 {
		c.Version = 1
	}
	c.DeletedAt = nil
	r.s.checkIns[c.ID] = cloneCheckIn(c)
	return nil
}

func (r *MemoryCheckInRepository) GetByID(ctx context.Context, id string) (*domain.CheckIn, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.checkIns[id]
	if !ok || c.DeletedAt != nil {
		return nil, domain.ErrCheckInNotFound
	}
	return cloneCheckIn(c), nil
}

func (r *MemoryCheckInRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.checkIns[id]
	if !ok || c.DeletedAt != nil {
		return domain.ErrCheckInNotFound
	}
	now := r.s.now().UTC()
	c.DeletedAt = &now
	c.UpdatedAt = now
	c.Version++
	return nil
}

func (r *MemoryCheckInRepository) filter(keep func(c *domain.CheckIn) bool) []*domain.CheckIn {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.CheckIn{}
	for _, c := range r.s.checkIns {
		if keep(c) {
			out = append(out, cloneCheckIn(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedAt.Before(out[j].CheckedAt) })
	return out
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (r *MemoryCheckInRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.CheckIn, error) {
	return r.filter(func(c *domain.CheckIn) bool {
		return c.HabitID == habitID && c.DeletedAt == nil
	}), nil
}

func (r *MemoryCheckInRepository) ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*domain.CheckIn, error) {
	return r.filter(func(c *domain.CheckIn) bool {
		return c.HabitID == habitID && c.DeletedAt == nil && inRange(c.CheckedAt, from, to)
	}), nil
}

func (r *MemoryCheckInRepository) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.CheckIn, error) {
	return r.filter(func(c *domain.CheckIn) bool {
		return c.UserID == userID && c.DeletedAt == nil && inRange(c.CheckedAt, from, to)
	}), nil
}

func (r *MemoryCheckInRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.CheckIn, error) {
	out := r.filter(func(c *domain.CheckIn) bool {
		return c.UserID == userID && c.UpdatedAt.After(since)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

var _ domain.UserRepository = (*MemoryUserRepository)(nil)

type MemoryUserRepository struct {
	s *MemoryStore
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return domain.ErrEmailAlreadyExists
		}
	}
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}
