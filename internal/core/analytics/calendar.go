package analytics

import "time"

type DayStatus string

const (
	StatusBeforeStart DayStatus = "before_start"
	StatusFuture      DayStatus = "future"
	StatusCompleted   DayStatus = "completed"
	StatusOffDay      DayStatus = "off_day"
	StatusMissed      DayStatus = "missed"
)

// DayCell is one square of the heatmap.
type DayCell struct {
	Date      string    `json:"date"`
	Status    DayStatus `json:"status"`
	Completed bool      `json:"completed"`
	IsOffDay  bool      `json:"is_off_day"`
	Count     int       `json:"count"`
}

// Classify assigns exactly one status to day. The checks run in a fixed order:
// a completion dated before creation or after today still renders as
// before-start or future.
func Classify(s Snapshot, day, today time.Time) DayStatus {
	return s.classify(s.ord(day), s.ord(today))
}

func (s Snapshot) classify(n, end int) DayStatus {
	switch {
	case s.hasCreated && n < s.created:
		return StatusBeforeStart
	case n > end:
		return StatusFuture
	case s.completed(n):
		return StatusCompleted
	case !s.active(n):
		return StatusOffDay
	default:
		return StatusMissed
	}
}

func (s Snapshot) cell(n, end int) DayCell {
	st := s.classify(n, end)
	return DayCell{
		Date:      s.date(n).Format(DateLayout),
		Status:    st,
		Completed: st == StatusCompleted,
		IsOffDay:  st == StatusOffDay,
		Count:     s.counts[n],
	}
}

func Cell(s Snapshot, day, today time.Time) DayCell {
	return s.cell(s.ord(day), s.ord(today))
}

// Calendar classifies every day in [from, to]. An inverted range is empty.
func Calendar(s Snapshot, from, to, today time.Time) []DayCell {
	start, stop, end := s.ord(from), s.ord(to), s.ord(today)
	if stop < start {
		return []DayCell{}
	}

	cells := make([]DayCell, 0, stop-start+1)
	for n := start; n <= stop; n++ {
		cells = append(cells, s.cell(n, end))
	}
	return cells
}

// Heatmap returns weeks rows of seven cells, Monday first, where the last row
// is the week containing today.
func Heatmap(s Snapshot, today time.Time, weeks int) [][]DayCell {
	if weeks <= 0 {
		return [][]DayCell{}
	}

	end := s.ord(today)
	monday := end - weekdayOffset(end)
	first := monday - 7*(weeks-1)

	grid := make([][]DayCell, 0, weeks)
	for w := 0; w < weeks; w++ {
		row := make([]DayCell, 7)
		for d := 0; d < 7; d++ {
			row[d] = s.cell(first+7*w+d, end)
		}
		grid = append(grid, row)
	}
	return grid
}

// weekdayOffset is the distance from the Monday of n's week.
func weekdayOffset(n int) int {
	return (int(civil(n).Weekday()) + 6) % 7
}
