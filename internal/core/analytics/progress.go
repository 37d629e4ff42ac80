package analytics

import (
	"math"
	"time"
)

// Progress describes how far a habit is toward its target in the current
// period: the Monday-aligned week for weekly goals, a single day for daily
// goals.
type Progress struct {
	Goal        GoalType `json:"goal_type"`
	PeriodStart string   `json:"period_start"`
	PeriodEnd   string   `json:"period_end"`
	Count       int      `json:"count"`
	Target      int      `json:"target"`
	Percent     int      `json:"percent"`
	Completed   bool     `json:"completed"`
}

// WeekStart returns Monday 00:00 of t's week in t's location.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// CountCheckInsThisWeek counts check-ins in [Monday 00:00, +7 days) of the
// week containing now, in the snapshot's location.
func CountCheckInsThisWeek(s Snapshot, now time.Time) int {
	end := s.ord(now)
	return s.countRange(end-weekdayOffset(end), 7)
}

func (s Snapshot) countRange(start, days int) int {
	total := 0
	for n := start; n < start+days; n++ {
		total += s.counts[n]
	}
	return total
}

// LastActiveDailyDate is the most recent scheduled day on or before today.
// With nothing scheduled in the past week it falls back to today.
func LastActiveDailyDate(s Snapshot, today time.Time) time.Time {
	return s.date(s.lastActive(s.ord(today)))
}

func (s Snapshot) lastActive(end int) int {
	for i := 0; i < 7; i++ {
		if s.active(end - i) {
			return end - i
		}
	}
	return end
}

// CurrentProgress evaluates the current period for the habit's goal type.
func CurrentProgress(s Snapshot, now time.Time) Progress {
	end := s.ord(now)

	p := Progress{Goal: s.def.Goal}
	var first, last int
	if s.def.Goal == GoalWeekly {
		first = end - weekdayOffset(end)
		last = first + 6
		p.Count = s.countRange(first, 7)
		p.Target = s.def.TimesPerWeek
	} else {
		p.Goal = GoalDaily
		first = s.lastActive(end)
		last = first
		p.Count = s.counts[first]
		p.Target = s.def.TimesPerDay
	}

	p.PeriodStart = s.date(first).Format(DateLayout)
	p.PeriodEnd = s.date(last).Format(DateLayout)
	p.Percent = percent(p.Count, p.Target)
	p.Completed = p.Target > 0 && p.Count >= p.Target
	return p
}

func percent(count, target int) int {
	if target <= 0 {
		return 0
	}
	return min(100, int(math.Round(100*float64(count)/float64(target))))
}
