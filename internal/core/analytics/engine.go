package analytics

import (
	"math"
	"time"
)

// EffectiveStart returns the earlier of the creation date and the earliest
// completion, as local midnight. The zero time is returned for an empty
// snapshot.
func EffectiveStart(s Snapshot) time.Time {
	start, ok := s.effectiveStart()
	if !ok {
		return time.Time{}
	}
	return s.date(start)
}

// AvailableConsistency is the share of eligible days since the effective start
// that were completed, as a rounded percentage. A day is eligible when it is
// scheduled or when it was completed anyway.
func AvailableConsistency(s Snapshot, today time.Time) int {
	start, ok := s.effectiveStart()
	if !ok {
		return 0
	}
	end := s.ord(today)
	if end < start {
		return 0
	}

	done, eligible := 0, 0
	for n := start; n <= end; n++ {
		switch {
		case s.completed(n):
			done++
			eligible++
		case s.active(n):
			eligible++
		}
	}

	if eligible == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(eligible)))
}

// LongestStreak walks from the earliest completion through today. Completed
// days extend the run, missed scheduled days reset it and off-days leave it
// untouched.
func LongestStreak(s Snapshot, today time.Time) int {
	if !s.hasCompletions() {
		return 0
	}

	run, best := 0, 0
	end := s.ord(today)
	for n := s.earliest; n <= end; n++ {
		switch {
		case s.completed(n):
			run++
			best = max(best, run)
		case s.active(n):
			run = 0
		}
	}
	return best
}

// CurrentStreak counts completed days backwards from today using the same
// off-day rule as LongestStreak. An unfinished today does not break the
// streak; the first missed scheduled day before it does.
func CurrentStreak(s Snapshot, today time.Time) int {
	if !s.hasCompletions() {
		return 0
	}

	n := s.ord(today)
	if !s.completed(n) {
		n--
	}

	streak := 0
	for ; n >= s.earliest; n-- {
		if s.completed(n) {
			streak++
			continue
		}
		if s.active(n) {
			break
		}
	}
	return streak
}

// StartedDaysAgo is the number of whole calendar days between the effective
// start and today, never negative.
func StartedDaysAgo(s Snapshot, today time.Time) int {
	start, ok := s.effectiveStart()
	if !ok {
		return 0
	}
	return max(0, s.ord(today)-start)
}
