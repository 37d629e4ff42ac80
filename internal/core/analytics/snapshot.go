// Package analytics turns a habit's check-in log and schedule into the metrics
// shown on habit cards: consistency, streaks, period progress and the per-day
// heatmap classification.
//
// Every function is pure. The caller supplies "today" (or "now") explicitly; the
// package never reads the wall clock. Calendar arithmetic is done on civil day
// ordinals in the snapshot's location, so DST transitions never shift a day.
package analytics

import (
	"sort"
	"time"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/schedule"
)

type GoalType string

const (
	GoalDaily  GoalType = "daily"
	GoalWeekly GoalType = "weekly"
)

const DateLayout = "2006-01-02"

// Definition is the static part of a habit that the engine cares about.
type Definition struct {
	HabitID      string
	Goal         GoalType
	TimesPerDay  int
	TimesPerWeek int
	CreatedAt    time.Time
	ActiveDays   schedule.ActiveDays
}

// Snapshot is a read-only view of a habit at query time. Completions are
// derived from the check-in log and cannot be set by callers.
type Snapshot struct {
	def      Definition
	loc      *time.Location
	checkIns []time.Time

	created    int
	hasCreated bool

	counts      map[int]int
	completions map[int]struct{}
	earliest    int
}

// NewSnapshot groups check-ins by local calendar day. A day is a completion
// once its count reaches the per-day target: TimesPerDay for daily goals and a
// single check-in for weekly goals.
func NewSnapshot(def Definition, checkIns []time.Time, loc *time.Location) Snapshot {
	if loc == nil {
		loc = time.UTC
	}
	if def.Goal != GoalWeekly {
		def.Goal = GoalDaily
	}
	if def.TimesPerDay < 1 {
		def.TimesPerDay = 1
	}
	if def.TimesPerWeek < 1 {
		def.TimesPerWeek = 1
	}

	s := Snapshot{
		def:         def,
		loc:         loc,
		checkIns:    make([]time.Time, 0, len(checkIns)),
		counts:      make(map[int]int),
		completions: make(map[int]struct{}),
	}

	if !def.CreatedAt.IsZero() {
		s.created = ordinal(def.CreatedAt.In(loc))
		s.hasCreated = true
	}

	for _, ci := range checkIns {
		if ci.IsZero() {
			continue
		}
		s.checkIns = append(s.checkIns, ci)
		s.counts[ordinal(ci.In(loc))]++
	}
	sort.Slice(s.checkIns, func(i, j int) bool { return s.checkIns[i].Before(s.checkIns[j]) })

	target := 1
	if def.Goal == GoalDaily {
		target = def.TimesPerDay
	}
	first := true
	for n, c := range s.counts {
		if c < target {
			continue
		}
		s.completions[n] = struct{}{}
		if first || n < s.earliest {
			s.earliest = n
			first = false
		}
	}

	return s
}

func (s Snapshot) Definition() Definition { return s.def }

func (s Snapshot) Location() *time.Location {
	if s.loc == nil {
		return time.UTC
	}
	return s.loc
}

func (s Snapshot) CheckIns() []time.Time {
	out := make([]time.Time, len(s.checkIns))
	copy(out, s.checkIns)
	return out
}

// Completions returns the completed calendar dates in ascending ISO order.
func (s Snapshot) Completions() []string {
	ords := make([]int, 0, len(s.completions))
	for n := range s.completions {
		ords = append(ords, n)
	}
	sort.Ints(ords)

	out := make([]string, len(ords))
	for i, n := range ords {
		out[i] = s.date(n).Format(DateLayout)
	}
	return out
}

// CountOn returns how many check-ins fall on the local calendar day of t.
func (s Snapshot) CountOn(t time.Time) int {
	return s.counts[s.ord(t)]
}

func (s Snapshot) hasCompletions() bool {
	return len(s.completions) > 0
}

func (s Snapshot) completed(n int) bool {
	_, ok := s.completions[n]
	return ok
}

func (s Snapshot) active(n int) bool {
	return s.def.ActiveDays.IsActive(civil(n))
}

// effectiveStart is min(createdAt, earliest completion). ok is false for a
// snapshot with neither, which every metric treats as empty.
func (s Snapshot) effectiveStart() (int, bool) {
	switch {
	case s.hasCreated && s.hasCompletions():
		return min(s.created, s.earliest), true
	case s.hasCreated:
		return s.created, true
	case s.hasCompletions():
		return s.earliest, true
	}
	return 0, false
}

func (s Snapshot) ord(t time.Time) int {
	return ordinal(t.In(s.Location()))
}

func (s Snapshot) date(n int) time.Time {
	c := civil(n)
	return time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, s.Location())
}

const secondsPerDay = 24 * 60 * 60

// ordinal is the number of civil days since 1970-01-01 for t's own wall date.
func ordinal(t time.Time) int {
	y, m, d := t.Date()
	u := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	if u < 0 {
		return int((u - secondsPerDay + 1) / secondsPerDay)
	}
	return int(u / secondsPerDay)
}

func civil(n int) time.Time {
	return time.Unix(int64(n)*secondsPerDay, 0).UTC()
}
