package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

var _ domain.HabitRepository = (*SQLiteHabitRepository)(nil)

type SQLiteHabitRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLiteHabitRepository(db *sqlx.DB) *SQLiteHabitRepository {
	return &SQLiteHabitRepository{db: db, now: time.Now}
}

func (r *SQLiteHabitRepository) scanRow(row scannable) (*domain.Habit, error) {
	var h domain.Habit
	var activeDays string
	var reminder, archivedAt, deletedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&h.ID, &h.UserID, &h.Title, &h.Description, &h.Color, &h.Icon, &h.SortOrder,
		&h.GoalType, &h.TimesPerDay, &h.TimesPerWeek, &activeDays, &reminder,
		&h.CurrentStreak, &h.LongestStreak, &archivedAt,
		&h.Version, &deletedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(activeDays), &h.ActiveDays); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active_days: %w", err)
	}
	if reminder.Valid {
		h.ReminderTime = &reminder.String
	}

	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if h.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if h.ArchivedAt, err = parseNullTime(archivedAt); err != nil {
		return nil, err
	}
	if h.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, err
	}

	return &h, nil
}

func (r *SQLiteHabitRepository) scanAll(rows *sql.Rows) ([]*domain.Habit, error) {
	defer rows.Close()

	var habits []*domain.Habit
	for rows.Next() {
		h, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (r *SQLiteHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	activeDays, err := json.Marshal(h.ActiveDays)
	if err != nil {
		return fmt.Errorf("failed to marshal active_days: %w", err)
	}

	query := `
        INSERT INTO habits (` + habitColumns + `) VALUES (
            ?, ?, ?, ?, ?, ?, ?,
            ?, ?, ?, ?, ?,
            ?, ?, ?,
            1, NULL, ?, ?
        )
        ON CONFLICT (id) DO UPDATE SET
            title = excluded.title, description = excluded.description,
            color = excluded.color, icon = excluded.icon, sort_order = excluded.sort_order,
            goal_type = excluded.goal_type, times_per_day = excluded.times_per_day,
            times_per_week = excluded.times_per_week, active_days = excluded.active_days,
            reminder_time = excluded.reminder_time,
            current_streak = 0, longest_streak = 0, archived_at = excluded.archived_at,
            version = habits.version + 1, deleted_at = NULL, updated_at = excluded.updated_at
        WHERE habits.deleted_at IS NOT NULL AND habits.user_id = excluded.user_id
        RETURNING version`

	var reminder sql.NullString
	if h.ReminderTime != nil {
		reminder = sql.NullString{String: *h.ReminderTime, Valid: true}
	}

	var version int
	err = r.db.QueryRowContext(ctx, query,
		h.ID, h.UserID, h.Title, h.Description, h.Color, h.Icon, h.SortOrder,
		h.GoalType, h.TimesPerDay, h.TimesPerWeek, string(activeDays), reminder,
		h.CurrentStreak, h.LongestStreak, nullTime(h.ArchivedAt),
		formatTime(h.CreatedAt), formatTime(h.UpdatedAt),
	).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrHabitConflict
		}
		if isSQLiteForeignKey(err) {
			return fmt.Errorf("failed to insert habit: owner %s does not exist: %w", h.UserID, err)
		}
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	h.Version = version
	h.DeletedAt = nil
	return nil
}

func (r *SQLiteHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = ? AND deleted_at IS NULL`

	h, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return h, nil
}

func (r *SQLiteHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = ? AND deleted_at IS NULL
        ORDER BY sort_order ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return r.scanAll(rows)
}

func (r *SQLiteHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	activeDays, err := json.Marshal(h.ActiveDays)
	if err != nil {
		return err
	}

	var reminder sql.NullString
	if h.ReminderTime != nil {
		reminder = sql.NullString{String: *h.ReminderTime, Valid: true}
	}

	now := r.now().UTC()
	query := `
        UPDATE habits SET
            title=?, description=?, color=?, icon=?, sort_order=?,
            goal_type=?, times_per_day=?, times_per_week=?, active_days=?, reminder_time=?,
            archived_at=?,
            updated_at=?, version = version + 1
        WHERE id=? AND version=? AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query,
		h.Title, h.Description, h.Color, h.Icon, h.SortOrder,
		h.GoalType, h.TimesPerDay, h.TimesPerWeek, string(activeDays), reminder,
		nullTime(h.ArchivedAt),
		formatTime(now),
		h.ID, h.Version,
	)
	if err != nil {
		return fmt.Errorf("update query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var count int
		if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM habits WHERE id = ? AND deleted_at IS NULL`, h.ID); err != nil {
			return fmt.Errorf("existence check failed: %w", err)
		}
		if count == 0 {
			return domain.ErrHabitNotFound
		}
		return domain.ErrHabitConflict
	}

	h.Version++
	h.UpdatedAt = now
	return nil
}

func (r *SQLiteHabitRepository) Delete(ctx context.Context, id string) error {
	now := formatTime(r.now())
	res, err := r.db.ExecContext(ctx, `
        UPDATE habits
        SET deleted_at = ?, updated_at = ?, version = version + 1
        WHERE id = ? AND deleted_at IS NULL`, now, now, id)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}

func (r *SQLiteHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = ? AND updated_at > ?
        ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("sync query error: %w", err)
	}
	return r.scanAll(rows)
}

func (r *SQLiteHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE habits
        SET current_streak = ?, longest_streak = ?, updated_at = ?
        WHERE id = ? AND deleted_at IS NULL`, current, longest, formatTime(r.now()), id)
	if err != nil {
		return fmt.Errorf("update streaks failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}
