package analytics

import "time"

// Report bundles every scalar metric a habit card needs.
type Report struct {
	HabitID          string   `json:"habit_id"`
	AsOf             string   `json:"as_of"`
	EffectiveStart   string   `json:"effective_start,omitempty"`
	StartedDaysAgo   int      `json:"started_days_ago"`
	Consistency      int      `json:"consistency"`
	LongestStreak    int      `json:"longest_streak"`
	CurrentStreak    int      `json:"current_streak"`
	TotalCheckIns    int      `json:"total_check_ins"`
	TotalCompletions int      `json:"total_completions"`
	CheckInsThisWeek int      `json:"check_ins_this_week"`
	Progress         Progress `json:"progress"`
	Today            DayCell  `json:"today"`
}

// Compute runs every metric against the same reference instant.
func Compute(s Snapshot, now time.Time) Report {
	r := Report{
		HabitID:          s.def.HabitID,
		AsOf:             s.date(s.ord(now)).Format(DateLayout),
		StartedDaysAgo:   StartedDaysAgo(s, now),
		Consistency:      AvailableConsistency(s, now),
		LongestStreak:    LongestStreak(s, now),
		CurrentStreak:    CurrentStreak(s, now),
		TotalCheckIns:    len(s.checkIns),
		TotalCompletions: len(s.completions),
		CheckInsThisWeek: CountCheckInsThisWeek(s, now),
		Progress:         CurrentProgress(s, now),
		Today:            Cell(s, now, now),
	}
	if start := EffectiveStart(s); !start.IsZero() {
		r.EffectiveStart = start.Format(DateLayout)
	}
	return r
}
