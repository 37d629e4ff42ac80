package domain

import (
	"errors"
	"time"
)

var ErrInvalidDateRange = errors.New("invalid date range")

// MaxRangeDays bounds stats and calendar queries.
const MaxRangeDays = 366

type WeeklyStats struct {
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
	TotalHabits int         `json:"total_habits"`
	OverallRate float64     `json:"overall_completion_rate"`
	HabitStats  []HabitStat `json:"habits"`
}

// HabitStat is measured over the habit's active days in the range only.
type HabitStat struct {
	HabitID        string  `json:"habit_id"`
	HabitTitle     string  `json:"habit_title"`
	Color          string  `json:"color"`
	Icon           string  `json:"icon"`
	GoalType       string  `json:"goal_type"`
	TargetValue    int     `json:"target_value"`
	TotalCheckIns  int     `json:"total_check_ins"`
	ActiveDays     int     `json:"active_days"`
	DaysCompleted  int     `json:"days_completed"`
	CompletionRate float64 `json:"completion_rate"`
	DailyProgress  []int   `json:"daily_progress"`
}

type StatsInput struct {
	UserID    string
	StartDate time.Time
	EndDate   time.Time
	Location  *time.Location
}
