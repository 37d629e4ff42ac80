package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/logger"
	"github.com/comitanigiacomo/kanso-tracker/internal/metrics"
)

const DefaultHeatmapWeeks = 12

// AnalyticsService loads a habit and its check-in log and runs the engine on
// them. It is the only place where "now" is read for analytics.
type AnalyticsService struct {
	habitRepo   domain.HabitRepository
	checkInRepo domain.CheckInRepository
	cache       domain.ReportCache
	now         func() time.Time
	loc         *time.Location
	log         *log.Logger
}

type AnalyticsOption func(*AnalyticsService)

func WithClock(now func() time.Time) AnalyticsOption {
	return func(s *AnalyticsService) { s.now = now }
}

func WithReportCache(c domain.ReportCache) AnalyticsOption {
	return func(s *AnalyticsService) { s.cache = c }
}

// WithDefaultLocation sets the zone used when a request does not carry one.
func WithDefaultLocation(loc *time.Location) AnalyticsOption {
	return func(s *AnalyticsService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithAnalyticsLogger(l *log.Logger) AnalyticsOption {
	return func(s *AnalyticsService) { s.log = l }
}

func NewAnalyticsService(habitRepo domain.HabitRepository, checkInRepo domain.CheckInRepository, opts ...AnalyticsOption) *AnalyticsService {
	s := &AnalyticsService{
		habitRepo:   habitRepo,
		checkInRepo: checkInRepo,
		now:         time.Now,
		loc:         time.UTC,
		log:         logger.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AnalyticsInput struct {
	HabitID  string
	UserID   string
	Location *time.Location
}

type CalendarInput struct {
	HabitID  string
	UserID   string
	From     time.Time
	To       time.Time
	Weeks    int
	Location *time.Location
}

type HabitCard struct {
	Habit  *domain.Habit     `json:"habit"`
	Report *analytics.Report `json:"report"`
}

type CalendarView struct {
	HabitID string                `json:"habit_id"`
	From    string                `json:"from"`
	To      string                `json:"to"`
	Days    []analytics.DayCell   `json:"days,omitempty"`
	Weeks   [][]analytics.DayCell `json:"weeks,omitempty"`
}

// Location resolves the zone a request is evaluated in. Callers parsing
// calendar dates must use it so the dates land on the same local days.
func (s *AnalyticsService) Location(loc *time.Location) *time.Location {
	if loc == nil {
		return s.loc
	}
	return loc
}

func (s *AnalyticsService) load(ctx context.Context, habitID, userID string) (*domain.Habit, []*domain.CheckIn, error) {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return nil, nil, err
	}
	if habit.UserID != userID {
		return nil, nil, domain.ErrHabitNotFound
	}

	checkIns, err := s.checkInRepo.ListByHabitID(ctx, habitID)
	if err != nil {
		return nil, nil, fmt.Errorf("analytics service: loading check-ins: %w", err)
	}
	return habit, checkIns, nil
}

func (s *AnalyticsService) HabitReport(ctx context.Context, input AnalyticsInput) (*HabitCard, error) {
	start := time.Now()
	defer func() { metrics.RecordAnalytics("report", time.Since(start)) }()

	habit, checkIns, err := s.load(ctx, input.HabitID, input.UserID)
	if err != nil {
		return nil, err
	}

	report := s.report(ctx, habit, checkIns, s.Location(input.Location), s.now())
	return &HabitCard{Habit: habit, Report: report}, nil
}

func (s *AnalyticsService) HabitCalendar(ctx context.Context, input CalendarInput) (*CalendarView, error) {
	start := time.Now()
	defer func() { metrics.RecordAnalytics("calendar", time.Since(start)) }()

	habit, checkIns, err := s.load(ctx, input.HabitID, input.UserID)
	if err != nil {
		return nil, err
	}

	loc := s.Location(input.Location)
	now := s.now().In(loc)
	snap := habit.Snapshot(checkIns, loc)

	view := &CalendarView{HabitID: habit.ID}

	if input.From.IsZero() && input.To.IsZero() {
		weeks := input.Weeks
		if weeks <= 0 {
			weeks = DefaultHeatmapWeeks
		}
		if weeks*7 > domain.MaxRangeDays+7 {
			return nil, fmt.Errorf("%w: at most %d weeks", domain.ErrInvalidDateRange, (domain.MaxRangeDays+7)/7)
		}

		view.Weeks = analytics.Heatmap(snap, now, weeks)
		view.From = view.Weeks[0][0].Date
		last := view.Weeks[len(view.Weeks)-1]
		view.To = last[len(last)-1].Date
		return view, nil
	}

	from, to := input.From, input.To
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, domain.ErrInvalidDateRange
	}
	if to.Sub(from) > time.Duration(domain.MaxRangeDays)*24*time.Hour {
		return nil, fmt.Errorf("%w: range too large (max %d days)", domain.ErrInvalidDateRange, domain.MaxRangeDays)
	}

	view.Days = analytics.Calendar(snap, from, to, now)
	view.From = from.In(loc).Format(analytics.DateLayout)
	view.To = to.In(loc).Format(analytics.DateLayout)
	return view, nil
}

// Overview returns a card for every live habit of the user, archived last.
func (s *AnalyticsService) Overview(ctx context.Context, userID string, loc *time.Location) ([]HabitCard, error) {
	start := time.Now()
	defer func() { metrics.RecordAnalytics("overview", time.Since(start)) }()

	habits, err := s.habitRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortHabits(habits)

	loc = s.Location(loc)
	now := s.now()

	cards := make([]HabitCard, 0, len(habits))
	for _, h := range habits {
		checkIns, err := s.checkInRepo.ListByHabitID(ctx, h.ID)
		if err != nil {
			return nil, fmt.Errorf("analytics service: loading check-ins for %s: %w", h.ID, err)
		}
		cards = append(cards, HabitCard{Habit: h, Report: s.report(ctx, h, checkIns, loc, now)})
	}
	return cards, nil
}

func (s *AnalyticsService) report(ctx context.Context, habit *domain.Habit, checkIns []*domain.CheckIn, loc *time.Location, now time.Time) *analytics.Report {
	if s.cache == nil {
		r := analytics.Compute(habit.Snapshot(checkIns, loc), now)
		return &r
	}

	key := ReportCacheKey(habit, checkIns, loc, now)
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached
	}

	r := analytics.Compute(habit.Snapshot(checkIns, loc), now)
	if err := s.cache.Set(ctx, key, &r); err != nil {
		s.log.Warn("report cache write failed", "habit", habit.ID, "err", err)
	}
	return &r
}

// ReportCacheKey identifies a report by everything it depends on: the habit
// definition version, the live check-in set, the local date and the zone.
func ReportCacheKey(habit *domain.Habit, checkIns []*domain.CheckIn, loc *time.Location, now time.Time) string {
	h := fnv.New64a()
	for _, c := range checkIns {
		if c == nil || c.DeletedAt != nil {
			continue
		}
		fmt.Fprintf(h, "%s@%d;", c.ID, c.CheckedAt.Unix())
	}

	return fmt.Sprintf("report:%s:v%d:%x:%s:%s",
		habit.ID, habit.Version, h.Sum64(), now.In(loc).Format(analytics.DateLayout), loc.String())
}
