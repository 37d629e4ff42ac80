package domain

import (
	"context"
	"errors"
	"time"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/analytics"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
	ErrHabitConflict = errors.New("habit version conflict")
	ErrUnauthorized  = errors.New("unauthorized access to resource")
)

type HabitRepository interface {
	// Create persists a new habit definition in the storage.
	Create(ctx context.Context, habit *Habit) error

	// GetByID retrieves a habit by its unique identifier.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// ListByUserID retrieves all habits associated with a specific user.
	ListByUserID(ctx context.Context, userID string) ([]*Habit, error)

	// Update modifies the state of an existing habit.
	Update(ctx context.Context, habit *Habit) error

	// Delete soft-deletes a habit.
	Delete(ctx context.Context, id string) error

	// GetChanges [SYNC] Returns only the deltas (changes) occurring after a specific date.
	GetChanges(ctx context.Context, userID string, since time.Time) ([]*Habit, error)

	UpdateStreaks(ctx context.Context, id string, current, longest int) error
}

type CheckInRepository interface {
	Create(ctx context.Context, checkIn *CheckIn) error
	GetByID(ctx context.Context, id string) (*CheckIn, error)

	// Delete soft-deletes a check-in so that the removal can be synced.
	Delete(ctx context.Context, id string) error

	// ListByHabitID returns the full live log of a habit ordered by CheckedAt.
	ListByHabitID(ctx context.Context, habitID string) ([]*CheckIn, error)

	// ListByHabitIDWithRange returns live check-ins with from <= CheckedAt < to.
	ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*CheckIn, error)

	ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]*CheckIn, error)

	GetChanges(ctx context.Context, userID string, since time.Time) ([]*CheckIn, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// ReportCache memoizes computed reports. Implementations may fail open: a
// miss and an error look the same to the caller.
type ReportCache interface {
	Get(ctx context.Context, key string) (*analytics.Report, bool)
	Set(ctx context.Context, key string, report *analytics.Report) error
}
