package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/schedule"
)

var (
	ErrHabitTitleEmpty    = errors.New("habit title cannot be empty")
	ErrHabitTitleTooLong  = errors.New("habit title is too long (max 100 chars)")
	ErrHabitDescTooLong   = errors.New("habit description is too long (max 500 chars)")
	ErrHabitInvalidUserID = errors.New("invalid user id")
	ErrInvalidColor       = errors.New("invalid color format (must be #RRGGBB)")
	ErrInvalidGoalType    = errors.New("invalid goal type (must be daily or weekly)")
	ErrInvalidTarget      = errors.New("target must be between 1 and 100")
	ErrHabitArchived      = errors.New("cannot update an archived habit")
	ErrInvalidReminder    = errors.New("invalid reminder format (must be HH:MM 24h)")
)

var colorRegex = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
var reminderRegex = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

const (
	GoalDaily   = string(analytics.GoalDaily)
	GoalWeekly  = string(analytics.GoalWeekly)
	DefaultIcon = "default_icon"
	MaxTitleLen = 100
	MaxDescLen  = 500
	MaxTarget   = 100
)

type Habit struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Color        string              `json:"color"`
	Icon         string              `json:"icon"`
	SortOrder    int                 `json:"sort_order"`
	GoalType     string              `json:"goal_type"`
	TimesPerDay  int                 `json:"times_per_day"`
	TimesPerWeek int                 `json:"times_per_week"`
	ActiveDays   schedule.ActiveDays `json:"active_days"`
	ReminderTime *string             `json:"reminder_time,omitempty"`

	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`

	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// HabitAttributes is the user-editable part of a habit.
type HabitAttributes struct {
	Title        string
	Description  string
	Color        string
	Icon         string
	GoalType     string
	ReminderTime string
	TimesPerDay  int
	TimesPerWeek int
	ActiveDays   schedule.ActiveDays
}

func validateAndNormalize(a HabitAttributes) (HabitAttributes, error) {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return a, ErrHabitTitleEmpty
	}
	if len(a.Title) > MaxTitleLen {
		return a, ErrHabitTitleTooLong
	}

	a.Description = strings.TrimSpace(a.Description)
	if len(a.Description) > MaxDescLen {
		return a, ErrHabitDescTooLong
	}

	switch a.GoalType {
	case "":
		a.GoalType = GoalDaily
	case GoalDaily, GoalWeekly:
	default:
		return a, ErrInvalidGoalType
	}

	if a.TimesPerDay == 0 {
		a.TimesPerDay = 1
	}
	if a.TimesPerWeek == 0 {
		a.TimesPerWeek = 1
	}
	if a.TimesPerDay < 1 || a.TimesPerDay > MaxTarget || a.TimesPerWeek < 1 || a.TimesPerWeek > MaxTarget {
		return a, ErrInvalidTarget
	}

	if a.ReminderTime != "" && !reminderRegex.MatchString(a.ReminderTime) {
		return a, ErrInvalidReminder
	}

	if a.Color != "" && !colorRegex.MatchString(a.Color) {
		return a, ErrInvalidColor
	}

	if a.Icon == "" {
		a.Icon = DefaultIcon
	}

	return a, nil
}

// NewHabit creates a daily habit, active every day, with a target of one
// check-in per day.
func NewHabit(title, userID string) (*Habit, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrHabitInvalidUserID
	}

	attrs, err := validateAndNormalize(HabitAttributes{Title: title, ActiveDays: schedule.AllActive()})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Habit{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        attrs.Title,
		Icon:         attrs.Icon,
		GoalType:     attrs.GoalType,
		TimesPerDay:  attrs.TimesPerDay,
		TimesPerWeek: attrs.TimesPerWeek,
		ActiveDays:   attrs.ActiveDays,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (h *Habit) Update(attrs HabitAttributes) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	clean, err := validateAndNormalize(attrs)
	if err != nil {
		return err
	}

	var remPtr *string
	if clean.ReminderTime != "" {
		remPtr = &clean.ReminderTime
	}

	h.Title = clean.Title
	h.Description = clean.Description
	h.Color = clean.Color
	h.Icon = clean.Icon
	h.GoalType = clean.GoalType
	h.TimesPerDay = clean.TimesPerDay
	h.TimesPerWeek = clean.TimesPerWeek
	h.ActiveDays = clean.ActiveDays
	h.ReminderTime = remPtr

	h.UpdatedAt = time.Now().UTC()

	return nil
}

// Attributes returns the editable fields, for merge-style partial updates.
func (h *Habit) Attributes() HabitAttributes {
	a := HabitAttributes{
		Title:        h.Title,
		Description:  h.Description,
		Color:        h.Color,
		Icon:         h.Icon,
		GoalType:     h.GoalType,
		TimesPerDay:  h.TimesPerDay,
		TimesPerWeek: h.TimesPerWeek,
		ActiveDays:   h.ActiveDays,
	}
	if h.ReminderTime != nil {
		a.ReminderTime = *h.ReminderTime
	}
	return a
}

func (h *Habit) ChangePosition(newOrder int) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	h.SortOrder = newOrder
	h.UpdatedAt = time.Now().UTC()
	return nil
}

func (h *Habit) Archive() {
	if h.ArchivedAt != nil {
		return
	}

	now := time.Now().UTC()
	h.ArchivedAt = &now
	h.UpdatedAt = now
}

func (h *Habit) Restore() {
	if h.ArchivedAt == nil {
		return
	}
	h.ArchivedAt = nil
	h.UpdatedAt = time.Now().UTC()
}

func (h *Habit) UpdateStreak(current, longest int) {
	h.CurrentStreak = current
	h.LongestStreak = longest
	h.UpdatedAt = time.Now().UTC()
}

// Definition is the engine's view of the habit.
func (h *Habit) Definition() analytics.Definition {
	return analytics.Definition{
		HabitID:      h.ID,
		Goal:         analytics.GoalType(h.GoalType),
		TimesPerDay:  h.TimesPerDay,
		TimesPerWeek: h.TimesPerWeek,
		CreatedAt:    h.CreatedAt,
		ActiveDays:   h.ActiveDays,
	}
}

// Snapshot builds the analytics input from the habit and its check-in log.
func (h *Habit) Snapshot(checkIns []*CheckIn, loc *time.Location) analytics.Snapshot {
	times := make([]time.Time, 0, len(checkIns))
	for _, c := range checkIns {
		if c == nil || c.DeletedAt != nil || c.HabitID != h.ID {
			continue
		}
		times = append(times, c.CheckedAt)
	}
	return analytics.NewSnapshot(h.Definition(), times, loc)
}
