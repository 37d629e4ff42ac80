package services

import (
	"context"
	"errors"
	"time"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/metrics"
)

// StreakEnqueuer schedules a streak recomputation for a habit.
type StreakEnqueuer interface {
	Enqueue(habitID string)
}

type CheckInService struct {
	repo      domain.CheckInRepository
	habitRepo domain.HabitRepository
	worker    StreakEnqueuer
	now       func() time.Time
}

func NewCheckInService(repo domain.CheckInRepository, habitRepo domain.HabitRepository, worker StreakEnqueuer) *CheckInService {
	return &CheckInService{
		repo:      repo,
		habitRepo: habitRepo,
		worker:    worker,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *CheckInService) WithClock(now func() time.Time) *CheckInService {
	s.now = now
	return s
}

type CreateCheckInInput struct {
	ID        string
	HabitID   string
	UserID    string
	CheckedAt time.Time
	Notes     string
}

// Create is idempotent on a client-supplied ID. Posting the ID of an undone
// check-in again restores it; the store bumps its version.
func (s *CheckInService) Create(ctx context.Context, input CreateCheckInInput) (*domain.CheckIn, error) {
	now := s.now()

	if input.ID != "" {
		existing, err := s.repo.GetByID(ctx, input.ID)
		switch {
		case err == nil && existing.UserID == input.UserID:
			return existing, nil
		case err == nil:
			return nil, domain.ErrCheckInConflict
		case !errors.Is(err, domain.ErrCheckInNotFound):
			return nil, err
		}
	}

	at := input.CheckedAt
	if at.IsZero() {
		at = now
	}

	checkIn := domain.NewCheckIn(input.HabitID, input.UserID, at)
	if input.ID != "" {
		checkIn.ID = input.ID
	}
	checkIn.Notes = input.Notes

	if err := checkIn.Validate(now); err != nil {
		return nil, err
	}

	habit, err := s.habitRepo.GetByID(ctx, checkIn.HabitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != checkIn.UserID {
		return nil, domain.ErrUnauthorized
	}
	if habit.ArchivedAt != nil {
		return nil, domain.ErrHabitArchived
	}

	if err := s.repo.Create(ctx, checkIn); err != nil {
		return nil, err
	}

	metrics.CheckInsRecorded.Inc()
	s.enqueue(checkIn.HabitID)

	return checkIn, nil
}

func (s *CheckInService) GetByID(ctx context.Context, id string, userID string) (*domain.CheckIn, error) {
	checkIn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if checkIn.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return checkIn, nil
}

func (s *CheckInService) ListByHabitID(ctx context.Context, habitID string, userID string, from, to time.Time) ([]*domain.CheckIn, error) {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrUnauthorized
	}

	return s.repo.ListByHabitIDWithRange(ctx, habitID, from, to)
}

// Delete undoes a check-in. The row is kept with DeletedAt set so that other
// devices see the removal on their next sync.
func (s *CheckInService) Delete(ctx context.Context, id string, userID string) error {
	checkIn, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.enqueue(checkIn.HabitID)

	return nil
}

func (s *CheckInService) GetDelta(ctx context.Context, userID string, since time.Time) ([]*domain.CheckIn, error) {
	return s.repo.GetChanges(ctx, userID, since)
}

func (s *CheckInService) enqueue(habitID string) {
	if s.worker != nil {
		s.worker.Enqueue(habitID)
	}
}
