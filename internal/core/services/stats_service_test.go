package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

func TestStatsService_GetWeeklyStats(t *testing.T) {
	ctx := context.Background()

	startDate := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)

	t.Run("Success: Rates only count completed and missed days", func(t *testing.T) {
		f := newAnalyticsFixture(t)

		water, _ := domain.NewHabit("Water", "user-1")
		water.CreatedAt = time.Date(2024, 3, 13, 6, 0, 0, 0, time.UTC)
		water.TimesPerDay = 2
		water.SortOrder = 1
		require.NoError(t, f.habits.Create(ctx, water))
		for _, at := range []time.Time{
			time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC),
		} {
			require.NoError(t, f.checkIns.Create(ctx, domain.NewCheckIn(water.ID, "user-1", at)))
		}

		svc := services.NewStatsService(f.habits, f.checkIns).WithClock(clock)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{UserID: "user-1", StartDate: startDate, EndDate: endDate})

		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalHabits)
		assert.Equal(t, "2024-03-11", stats.StartDate)
		assert.Equal(t, "2024-03-17", stats.EndDate)

		stretch := findHabitStat(stats.HabitStats, f.habit.ID)
		require.NotNil(t, stretch)
		assert.Equal(t, []int{1, 1, 1, 1, 1, 0, 0}, stretch.DailyProgress)
		assert.Equal(t, 5, stretch.TotalCheckIns)
		assert.Equal(t, 5, stretch.DaysCompleted)
		assert.Equal(t, 5, stretch.ActiveDays)
		assert.InDelta(t, 100.0, stretch.CompletionRate, 0.01)

		w := findHabitStat(stats.HabitStats, water.ID)
		require.NotNil(t, w)
		assert.Equal(t, []int{0, 0, 2, 1, 0, 0, 0}, w.DailyProgress)
		assert.Equal(t, 2, w.TargetValue)
		assert.Equal(t, 1, w.DaysCompleted)
		assert.Equal(t, 3, w.ActiveDays)
		assert.InDelta(t, 33.33, w.CompletionRate, 0.01)

		assert.InDelta(t, 75.0, stats.OverallRate, 0.01)
	})

	t.Run("Success: Local days follow the requested zone", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		la := time.FixedZone("PST", -8*3600)
		svc := services.NewStatsService(f.habits, f.checkIns).WithClock(clock)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{
			UserID:    "user-1",
			StartDate: time.Date(2024, 3, 11, 0, 0, 0, 0, la),
			EndDate:   time.Date(2024, 3, 17, 0, 0, 0, 0, la),
			Location:  la,
		})

		require.NoError(t, err)
		stretch := findHabitStat(stats.HabitStats, f.habit.ID)
		require.NotNil(t, stretch)
		// 07:30 UTC is 23:30 of the previous day in PST
		assert.Equal(t, []int{1, 1, 1, 1, 0, 0, 0}, stretch.DailyProgress)
	})

	t.Run("Success: Handles no habits", func(t *testing.T) {
		habitRepo := new(MockHabitRepo)
		svc := services.NewStatsService(habitRepo, NewMockCheckInRepo()).WithClock(clock)

		habitRepo.On("ListByUserID", ctx, "user-1").Return([]*domain.Habit{}, nil)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{UserID: "user-1", StartDate: startDate, EndDate: endDate})

		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalHabits)
		assert.Empty(t, stats.HabitStats)
		assert.Equal(t, 0.0, stats.OverallRate)
	})

	t.Run("Fail: Repository error", func(t *testing.T) {
		habitRepo := new(MockHabitRepo)
		svc := services.NewStatsService(habitRepo, NewMockCheckInRepo())

		habitRepo.On("ListByUserID", ctx, "user-1").Return(nil, errors.New("db error"))

		_, err := svc.GetWeeklyStats(ctx, domain.StatsInput{UserID: "user-1", StartDate: startDate, EndDate: endDate})
		assert.Error(t, err)
	})

	t.Run("Fail: Inverted range", func(t *testing.T) {
		habitRepo := new(MockHabitRepo)
		svc := services.NewStatsService(habitRepo, NewMockCheckInRepo())

		_, err := svc.GetWeeklyStats(ctx, domain.StatsInput{UserID: "user-1", StartDate: endDate, EndDate: startDate})

		assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
		habitRepo.AssertNotCalled(t, "ListByUserID", mock.Anything, mock.Anything)
	})
}

func findHabitStat(stats []domain.HabitStat, habitID string) *domain.HabitStat {
	for i := range stats {
		if stats[i].HabitID == habitID {
			return &stats[i]
		}
	}
	return nil
}
