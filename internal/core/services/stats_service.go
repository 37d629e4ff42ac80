package services

import (
	"context"
	"time"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

type StatsService struct {
	habitRepo   domain.HabitRepository
	checkInRepo domain.CheckInRepository
	now         func() time.Time
}

func NewStatsService(habitRepo domain.HabitRepository, checkInRepo domain.CheckInRepository) *StatsService {
	return &StatsService{
		habitRepo:   habitRepo,
		checkInRepo: checkInRepo,
		now:         time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// GetWeeklyStats rolls check-ins up per local day. A habit's completion rate
// only counts days the engine classifies as completed or missed, so off-days,
// future days and days before the habit existed are left out.
func (s *StatsService) GetWeeklyStats(ctx context.Context, input domain.StatsInput) (*domain.WeeklyStats, error) {
	loc := input.Location
	if loc == nil {
		loc = time.UTC
	}

	startDate := midnight(input.StartDate, loc)
	endDate := midnight(input.EndDate, loc)
	if endDate.Before(startDate) {
		return nil, domain.ErrInvalidDateRange
	}
	days := daysBetween(startDate, endDate) + 1
	if days > domain.MaxRangeDays {
		return nil, domain.ErrInvalidDateRange
	}

	habits, err := s.habitRepo.ListByUserID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	sortHabits(habits)

	rangeEnd := startDate.AddDate(0, 0, days)
	checkIns, err := s.checkInRepo.ListByUserIDAndDateRange(ctx, input.UserID, startDate, rangeEnd)
	if err != nil {
		return nil, err
	}

	byHabit := make(map[string][]*domain.CheckIn)
	for _, c := range checkIns {
		byHabit[c.HabitID] = append(byHabit[c.HabitID], c)
	}

	stats := &domain.WeeklyStats{
		StartDate:   startDate.Format(analytics.DateLayout),
		EndDate:     endDate.Format(analytics.DateLayout),
		TotalHabits: len(habits),
		HabitStats:  make([]domain.HabitStat, 0, len(habits)),
	}

	today := s.now().In(loc)
	totalEligible := 0
	totalCompleted := 0

	for _, h := range habits {
		snap := h.Snapshot(byHabit[h.ID], loc)

		target := h.TimesPerDay
		if h.GoalType == domain.GoalWeekly {
			target = h.TimesPerWeek
		}

		hStat := domain.HabitStat{
			HabitID:       h.ID,
			HabitTitle:    h.Title,
			Color:         h.Color,
			Icon:          h.Icon,
			GoalType:      h.GoalType,
			TargetValue:   target,
			DailyProgress: make([]int, 0, days),
		}

		eligible := 0
		for i := 0; i < days; i++ {
			cell := analytics.Cell(snap, startDate.AddDate(0, 0, i), today)

			hStat.TotalCheckIns += cell.Count
			hStat.DailyProgress = append(hStat.DailyProgress, cell.Count)

			switch cell.Status {
			case analytics.StatusCompleted:
				hStat.DaysCompleted++
				eligible++
			case analytics.StatusMissed:
				eligible++
			}
		}

		hStat.ActiveDays = eligible
		if eligible > 0 {
			hStat.CompletionRate = float64(hStat.DaysCompleted) / float64(eligible) * 100
		}

		totalEligible += eligible
		totalCompleted += hStat.DaysCompleted

		stats.HabitStats = append(stats.HabitStats, hStat)
	}

	if totalEligible > 0 {
		stats.OverallRate = float64(totalCompleted) / float64(totalEligible) * 100
	}

	return stats, nil
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
