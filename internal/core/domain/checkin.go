package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidCheckIn  = errors.New("invalid check-in data")
	ErrCheckInNotFound = errors.New("check-in not found")
	ErrCheckInConflict = errors.New("check-in version conflict")
	ErrCheckInFuture   = errors.New("check-in cannot be in the future")
)

const MaxCheckInNotesLen = 500

// CheckIn is one entry of a habit's append-only log. Deleting sets DeletedAt
// so that offline clients can sync the removal.
type CheckIn struct {
	ID      string `json:"id" db:"id"`
	HabitID string `json:"habit_id" db:"habit_id"`
	UserID  string `json:"user_id" db:"user_id"`

	CheckedAt time.Time `json:"checked_at" db:"checked_at"`
	Notes     string    `json:"notes" db:"notes"`

	Version   int        `json:"version" db:"version"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func NewCheckIn(habitID, userID string, at time.Time) *CheckIn {
	now := time.Now().UTC()

	return &CheckIn{
		ID:        uuid.NewString(),
		HabitID:   habitID,
		UserID:    userID,
		CheckedAt: at.UTC(),

		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate rejects check-ins more than a day ahead of now; a small skew is
// allowed for clients in zones east of the server.
func (c *CheckIn) Validate(now time.Time) error {
	if strings.TrimSpace(c.HabitID) == "" {
		return fmt.Errorf("%w: habit_id is required", ErrInvalidCheckIn)
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidCheckIn)
	}
	if c.CheckedAt.IsZero() {
		return fmt.Errorf("%w: checked_at is required", ErrInvalidCheckIn)
	}
	if len(c.Notes) > MaxCheckInNotesLen {
		return fmt.Errorf("%w: notes too long", ErrInvalidCheckIn)
	}
	if c.CheckedAt.After(now.Add(24 * time.Hour)) {
		return ErrCheckInFuture
	}
	return nil
}
