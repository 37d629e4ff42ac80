package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

var _ domain.CheckInRepository = (*SQLiteCheckInRepository)(nil)

type SQLiteCheckInRepository struct {
	db *sqlx.DB
}

func NewSQLiteCheckInRepository(db *sqlx.DB) *SQLiteCheckInRepository {
	return &SQLiteCheckInRepository{db: db}
}

func scanSQLiteCheckIn(row scannable) (*domain.CheckIn, error) {
	var c domain.CheckIn
	var checkedAt, createdAt, updatedAt string
	var deletedAt sql.NullString

	if err := row.Scan(&c.ID, &c.HabitID, &c.UserID, &checkedAt, &c.Notes,
		&c.Version, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	var err error
	if c.CheckedAt, err = parseTime(checkedAt); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if c.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SQLiteCheckInRepository) list(ctx context.Context, query string, args ...any) ([]*domain.CheckIn, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.CheckIn{}
	for rows.Next() {
		c, err := scanSQLiteCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteCheckInRepository) Create(ctx context.Context, c *domain.CheckIn) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	var createdAt string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO check_ins (`+checkInColumns+`) VALUES (?, ?, ?, ?, ?, 1, ?, ?, NULL)
		ON CONFLICT (id) DO UPDATE SET
			checked_at = excluded.checked_at, notes = excluded.notes,
			version = check_ins.version + 1, deleted_at = NULL, updated_at = excluded.updated_at
		WHERE check_ins.deleted_at IS NOT NULL
		  AND check_ins.user_id = excluded.user_id
		  AND check_ins.habit_id = excluded.habit_id
		RETURNING version, created_at`,
		c.ID, c.HabitID, c.UserID, formatTime(c.CheckedAt), c.Notes,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	).Scan(&c.Version, &createdAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.ErrCheckInConflict
		case isSQLiteForeignKey(err):
			return fmt.Errorf("%w: referenced habit or user does not exist", domain.ErrHabitNotFound)
		}
		return fmt.Errorf("failed to insert check-in: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return err
	}
	c.DeletedAt = nil
	return nil
}

func (r *SQLiteCheckInRepository) GetByID(ctx context.Context, id string) (*domain.CheckIn, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+checkInColumns+` FROM check_ins WHERE id = ? AND deleted_at IS NULL`, id)

	c, err := scanSQLiteCheckIn(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCheckInNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *SQLiteCheckInRepository) Delete(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		UPDATE check_ins
		SET deleted_at = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND deleted_at IS NULL`, now, now, id)
	if err != nil {
		return fmt.Errorf("delete check-in failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCheckInNotFound
	}
	return nil
}

func (r *SQLiteCheckInRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.CheckIn, error) {
	return r.list(ctx, `
		SELECT `+checkInColumns+` FROM check_ins
		WHERE habit_id = ? AND deleted_at IS NULL
		ORDER BY checked_at ASC`, habitID)
}

func (r *SQLiteCheckInRepository) ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*domain.CheckIn, error) {
	return r.list(ctx, `
		SELECT `+checkInColumns+` FROM check_ins
		WHERE habit_id = ? AND checked_at >= ? AND checked_at < ? AND deleted_at IS NULL
		ORDER BY checked_at ASC`, habitID, formatTime(from), formatTime(to))
}

func (r *SQLiteCheckInRepository) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.CheckIn, error) {
	return r.list(ctx, `
		SELECT `+checkInColumns+` FROM check_ins
		WHERE user_id = ? AND checked_at >= ? AND checked_at < ? AND deleted_at IS NULL
		ORDER BY checked_at ASC`, userID, formatTime(from), formatTime(to))
}

func (r *SQLiteCheckInRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.CheckIn, error) {
	return r.list(ctx, `
		SELECT `+checkInColumns+` FROM check_ins
		WHERE user_id = ? AND updated_at > ?
		ORDER BY updated_at ASC`, userID, formatTime(since))
}
