package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/schedule"
)

type HabitService struct {
	repo domain.HabitRepository
}

func NewHabitService(repo domain.HabitRepository) *HabitService {
	return &HabitService{
		repo: repo,
	}
}

type CreateHabitInput struct {
	ID           string
	UserID       string
	Title        string
	Description  string
	Color        string
	Icon         string
	GoalType     string
	ReminderTime string
	TimesPerDay  int
	TimesPerWeek int
	ActiveDays   *schedule.ActiveDays
	SortOrder    int
}

// UpdateHabitInput carries a partial update: nil fields keep their value.
type UpdateHabitInput struct {
	ID           string
	UserID       string
	Title        *string
	Description  *string
	Color        *string
	Icon         *string
	GoalType     *string
	ReminderTime *string
	TimesPerDay  *int
	TimesPerWeek *int
	ActiveDays   *schedule.ActiveDays
	SortOrder    *int
	Version      int
}

func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error) {
	if input.ID != "" {
		existing, err := s.repo.GetByID(ctx, input.ID)
		switch {
		case err == nil && existing.UserID == input.UserID:
			// client retried an offline create
			return existing, nil
		case err == nil:
			return nil, domain.ErrHabitConflict
		case !errors.Is(err, domain.ErrHabitNotFound):
			return nil, err
		}
	}

	habit, err := domain.NewHabit(input.Title, input.UserID)
	if err != nil {
		return nil, err
	}
	if input.ID != "" {
		habit.ID = input.ID
	}

	active := schedule.AllActive()
	if input.ActiveDays != nil {
		active = *input.ActiveDays
	}

	err = habit.Update(domain.HabitAttributes{
		Title:        input.Title,
		Description:  input.Description,
		Color:        input.Color,
		Icon:         input.Icon,
		GoalType:     input.GoalType,
		ReminderTime: input.ReminderTime,
		TimesPerDay:  input.TimesPerDay,
		TimesPerWeek: input.TimesPerWeek,
		ActiveDays:   active,
	})
	if err != nil {
		return nil, err
	}
	habit.SortOrder = input.SortOrder

	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

func (s *HabitService) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	habits, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortHabits(habits)
	return habits, nil
}

func (s *HabitService) GetByID(ctx context.Context, id, userID string) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

func (s *HabitService) GetDelta(ctx context.Context, userID string, lastSync time.Time) ([]*domain.Habit, error) {
	return s.repo.GetChanges(ctx, userID, lastSync)
}

func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, input.ID)
	if errors.Is(err, domain.ErrHabitNotFound) && input.Title != nil {
		return s.Create(ctx, createFromUpdate(input))
	}
	if err != nil {
		return nil, err
	}

	if habit.UserID != input.UserID {
		return nil, domain.ErrHabitNotFound
	}

	if input.Version > 0 && habit.Version != input.Version {
		return nil, fmt.Errorf("%w: client v%d vs server v%d", domain.ErrHabitConflict, input.Version, habit.Version)
	}

	attrs := habit.Attributes()
	mergeString(&attrs.Title, input.Title)
	mergeString(&attrs.Description, input.Description)
	mergeString(&attrs.Color, input.Color)
	mergeString(&attrs.Icon, input.Icon)
	mergeString(&attrs.GoalType, input.GoalType)
	mergeString(&attrs.ReminderTime, input.ReminderTime)
	mergeInt(&attrs.TimesPerDay, input.TimesPerDay)
	mergeInt(&attrs.TimesPerWeek, input.TimesPerWeek)
	if input.ActiveDays != nil {
		attrs.ActiveDays = *input.ActiveDays
	}

	if err := habit.Update(attrs); err != nil {
		return nil, err
	}
	if input.SortOrder != nil {
		if err := habit.ChangePosition(*input.SortOrder); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

func (s *HabitService) Archive(ctx context.Context, id, userID string) (*domain.Habit, error) {
	habit, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if habit.ArchivedAt != nil {
		return habit, nil
	}

	habit.Archive()
	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}
	return habit, nil
}

func (s *HabitService) Restore(ctx context.Context, id, userID string) (*domain.Habit, error) {
	habit, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if habit.ArchivedAt == nil {
		return habit, nil
	}

	habit.Restore()
	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}
	return habit, nil
}

func (s *HabitService) Delete(ctx context.Context, id string, userID string) error {
	if _, err := s.GetByID(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func createFromUpdate(in UpdateHabitInput) CreateHabitInput {
	out := CreateHabitInput{ID: in.ID, UserID: in.UserID, ActiveDays: in.ActiveDays}
	mergeString(&out.Title, in.Title)
	mergeString(&out.Description, in.Description)
	mergeString(&out.Color, in.Color)
	mergeString(&out.Icon, in.Icon)
	mergeString(&out.GoalType, in.GoalType)
	mergeString(&out.ReminderTime, in.ReminderTime)
	mergeInt(&out.TimesPerDay, in.TimesPerDay)
	mergeInt(&out.TimesPerWeek, in.TimesPerWeek)
	mergeInt(&out.SortOrder, in.SortOrder)
	return out
}

func mergeString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func mergeInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// sortHabits orders active habits first, then by position and creation.
func sortHabits(habits []*domain.Habit) {
	sort.SliceStable(habits, func(i, j int) bool {
		a, b := habits[i], habits[j]
		if (a.ArchivedAt == nil) != (b.ArchivedAt == nil) {
			return a.ArchivedAt == nil
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
