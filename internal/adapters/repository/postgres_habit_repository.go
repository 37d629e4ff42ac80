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

	_ "github.com/jackc/pgx/v5/stdlib"
)

var _ domain.HabitRepository = (*PostgresHabitRepository)(nil)

const habitColumns = `id, user_id, title, description, color, icon, sort_order,
	goal_type, times_per_day, times_per_week, active_days, reminder_time,
	current_streak, longest_streak, archived_at,
	version, deleted_at, created_at, updated_at`

type PostgresHabitRepository struct {
	db *sqlx.DB
}

func NewPostgresHabitRepository(db *sqlx.DB) *PostgresHabitRepository {
	return &PostgresHabitRepository{db: db}
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresHabitRepository) scanRow(row scannable) (*domain.Habit, error) {
	var h domain.Habit
	var activeDaysJSON []byte

	err := row.Scan(
		&h.ID, &h.UserID, &h.Title, &h.Description, &h.Color, &h.Icon, &h.SortOrder,
		&h.GoalType, &h.TimesPerDay, &h.TimesPerWeek, &activeDaysJSON, &h.ReminderTime,
		&h.CurrentStreak, &h.LongestStreak, &h.ArchivedAt,
		&h.Version, &h.DeletedAt, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(activeDaysJSON) > 0 {
		if err := json.Unmarshal(activeDaysJSON, &h.ActiveDays); err != nil {
			return nil, fmt.Errorf("failed to unmarshal active_days: %w", err)
		}
	}

	return &h, nil
}

func (r *PostgresHabitRepository) scanAll(rows *sql.Rows) ([]*domain.Habit, error) {
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

// Create inserts the habit. A soft-deleted row with the same ID and owner is
// brought back to life; a live one is a conflict.
func (r *PostgresHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	activeDaysJSON, err := json.Marshal(h.ActiveDays)
	if err != nil {
		return fmt.Errorf("failed to marshal active_days: %w", err)
	}

	query := `
        INSERT INTO habits (` + habitColumns + `) VALUES (
            $1, $2, $3, $4, $5, $6, $7,
            $8, $9, $10, $11, $12,
            $13, $14, $15,
            1, NULL, $16, $17
        )
        ON CONFLICT (id) DO UPDATE SET
            title = EXCLUDED.title, description = EXCLUDED.description,
            color = EXCLUDED.color, icon = EXCLUDED.icon, sort_order = EXCLUDED.sort_order,
            goal_type = EXCLUDED.goal_type, times_per_day = EXCLUDED.times_per_day,
            times_per_week = EXCLUDED.times_per_week, active_days = EXCLUDED.active_days,
            reminder_time = EXCLUDED.reminder_time,
            current_streak = 0, longest_streak = 0, archived_at = EXCLUDED.archived_at,
            version = habits.version + 1, deleted_at = NULL, updated_at = EXCLUDED.updated_at
        WHERE habits.deleted_at IS NOT NULL AND habits.user_id = EXCLUDED.user_id
        RETURNING version`

	var version int
	err = r.db.QueryRowContext(ctx, query,
		h.ID, h.UserID, h.Title, h.Description, h.Color, h.Icon, h.SortOrder,
		h.GoalType, h.TimesPerDay, h.TimesPerWeek, activeDaysJSON, h.ReminderTime,
		h.CurrentStreak, h.LongestStreak, h.ArchivedAt,
		h.CreatedAt, h.UpdatedAt,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrHabitConflict
		}
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	h.Version = version
	h.DeletedAt = nil
	return nil
}

func (r *PostgresHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1 AND deleted_at IS NULL`

	h, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return h, nil
}

func (r *PostgresHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = $1 AND deleted_at IS NULL
        ORDER BY sort_order ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return r.scanAll(rows)
}

func (r *PostgresHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	activeDaysJSON, err := json.Marshal(h.ActiveDays)
	if err != nil {
		return err
	}

	query := `
        UPDATE habits SET
            title=$1, description=$2, color=$3, icon=$4, sort_order=$5,
            goal_type=$6, times_per_day=$7, times_per_week=$8, active_days=$9, reminder_time=$10,
            archived_at=$11,
            updated_at=NOW(), version = version + 1
        WHERE id=$12 AND version=$13 AND deleted_at IS NULL
        RETURNING version, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		h.Title, h.Description, h.Color, h.Icon, h.SortOrder,
		h.GoalType, h.TimesPerDay, h.TimesPerWeek, activeDaysJSON, h.ReminderTime,
		h.ArchivedAt,
		h.ID, h.Version,
	)

	var newVersion int
	var newUpdatedAt time.Time

	if err := row.Scan(&newVersion, &newUpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var count int
			existsQuery := `SELECT count(*) FROM habits WHERE id = $1 AND deleted_at IS NULL`
			if checkErr := r.db.QueryRowContext(ctx, existsQuery, h.ID).Scan(&count); checkErr != nil {
				return fmt.Errorf("existence check failed: %w", checkErr)
			}
			if count == 0 {
				return domain.ErrHabitNotFound
			}
			return domain.ErrHabitConflict
		}
		return fmt.Errorf("update query failed: %w", err)
	}

	h.Version = newVersion
	h.UpdatedAt = newUpdatedAt

	return nil
}

func (r *PostgresHabitRepository) Delete(ctx context.Context, id string) error {
	query := `
        UPDATE habits
        SET deleted_at = NOW(), updated_at = NOW(), version = version + 1
        WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id)
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

// GetChanges includes soft-deleted rows so that clients learn about removals.
func (r *PostgresHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = $1 AND updated_at > $2
        ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("sync query error: %w", err)
	}
	return r.scanAll(rows)
}

// UpdateStreaks stores derived values only; it does not bump the version.
func (r *PostgresHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	query := `
        UPDATE habits
        SET current_streak = $1, longest_streak = $2, updated_at = NOW()
        WHERE id = $3 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, current, longest, id)
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
