package workers

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/logger"
	"github.com/comitanigiacomo/kanso-tracker/internal/metrics"
)

type HabitRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Habit, error)
	UpdateStreaks(ctx context.Context, id string, current, longest int) error
}

type CheckInRepository interface {
	ListByHabitID(ctx context.Context, habitID string) ([]*domain.CheckIn, error)
}

type StreakJob struct {
	HabitID string
}

// StreakWorker recomputes the cached streak columns of a habit after its
// check-in log changes. The columns use the worker's zone (server.timezone);
// the analytics endpoints recompute in the caller's zone, so the two can
// disagree around midnight for users far from the server.
type StreakWorker struct {
	habitRepo   HabitRepository
	checkInRepo CheckInRepository
	loc         *time.Location
	now         func() time.Time
	log         *log.Logger
	jobs        chan StreakJob
}

type Option func(*StreakWorker)

func WithClock(now func() time.Time) Option {
	return func(w *StreakWorker) { w.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(w *StreakWorker) { w.log = l }
}

func WithQueueSize(n int) Option {
	return func(w *StreakWorker) {
		if n > 0 {
			w.jobs = make(chan StreakJob, n)
		}
	}
}

func NewStreakWorker(hRepo HabitRepository, cRepo CheckInRepository, loc *time.Location, opts ...Option) *StreakWorker {
	if loc == nil {
		loc = time.UTC
	}
	w := &StreakWorker{
		habitRepo:   hRepo,
		checkInRepo: cRepo,
		loc:         loc,
		now:         time.Now,
		log:         logger.Logger,
		jobs:        make(chan StreakJob, 100),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *StreakWorker) Start(ctx context.Context) {
	go func() {
		w.log.Info("streak worker started", "queue", cap(w.jobs))
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				w.log.Info("streak worker shutting down", "pending", len(w.jobs))
				return
			}
		}
	}()
}

// Enqueue never blocks; the job is dropped when the queue is full.
func (w *StreakWorker) Enqueue(habitID string) {
	select {
	case w.jobs <- StreakJob{HabitID: habitID}:
	default:
		metrics.StreakJobs.WithLabelValues("dropped").Inc()
		w.log.Warn("streak worker queue full, dropping job", "habit", habitID)
	}
}

func (w *StreakWorker) Pending() int {
	return len(w.jobs)
}

func (w *StreakWorker) processJob(ctx context.Context, job StreakJob) {
	habit, err := w.habitRepo.GetByID(ctx, job.HabitID)
	if err != nil {
		metrics.StreakJobs.WithLabelValues("failed").Inc()
		w.log.Error("worker: fetching habit", "habit", job.HabitID, "err", err)
		return
	}

	checkIns, err := w.checkInRepo.ListByHabitID(ctx, job.HabitID)
	if err != nil {
		metrics.StreakJobs.WithLabelValues("failed").Inc()
		w.log.Error("worker: fetching check-ins", "habit", job.HabitID, "err", err)
		return
	}

	current, longest := calculateStreaks(habit, checkIns, w.loc, w.now())

	if habit.CurrentStreak == current && habit.LongestStreak == longest {
		metrics.StreakJobs.WithLabelValues("unchanged").Inc()
		return
	}

	if err := w.habitRepo.UpdateStreaks(ctx, habit.ID, current, longest); err != nil {
		metrics.StreakJobs.WithLabelValues("failed").Inc()
		w.log.Error("worker: updating streaks", "habit", job.HabitID, "err", err)
		return
	}

	metrics.StreakJobs.WithLabelValues("updated").Inc()
	w.log.Debug("streak updated", "habit", habit.ID, "current", current, "longest", longest)
}

func calculateStreaks(habit *domain.Habit, checkIns []*domain.CheckIn, loc *time.Location, now time.Time) (int, int) {
	s := habit.Snapshot(checkIns, loc)
	return analytics.CurrentStreak(s, now), analytics.LongestStreak(s, now)
}
