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

var _ domain.CheckInRepository = (*PostgresCheckInRepository)(nil)

const checkInColumns = `id, habit_id, user_id, checked_at, notes, version, created_at, updated_at, deleted_at`

type PostgresCheckInRepository struct {
	db *sqlx.DB
}

func NewPostgresCheckInRepository(db *sqlx.DB) *PostgresCheckInRepository {
	return &PostgresCheckInRepository{db: db}
}

// Create inserts a check-in. Reusing the id of an undone check-in of the
// same owner and habit brings it back with a bumped version.
func (r *PostgresCheckInRepository) Create(ctx context.Context, c *domain.CheckIn) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	query := `
		INSERT INTO check_ins (` + checkInColumns + `)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7, NULL)
		ON CONFLICT (id) DO UPDATE SET
			checked_at = EXCLUDED.checked_at, notes = EXCLUDED.notes,
			version = check_ins.version + 1, deleted_at = NULL, updated_at = EXCLUDED.updated_at
		WHERE check_ins.deleted_at IS NOT NULL
		  AND check_ins.user_id = EXCLUDED.user_id
		  AND check_ins.habit_id = EXCLUDED.habit_id
		RETURNING version, created_at`

	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.HabitID, c.UserID, c.CheckedAt, c.Notes, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.Version, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCheckInConflict
		}
		if pgErrorCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("%w: referenced habit or user does not exist", domain.ErrHabitNotFound)
		}
		return fmt.Errorf("failed to insert check-in: %w", err)
	}
	c.DeletedAt = nil
	return nil
}

func (r *PostgresCheckInRepository) GetByID(ctx context.Context, id string) (*domain.CheckIn, error) {
	var c domain.CheckIn
	query := `SELECT ` + checkInColumns + ` FROM check_ins WHERE id = $1 AND deleted_at IS NULL`

	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCheckInNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PostgresCheckInRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE check_ins
		SET deleted_at = $1, updated_at = $1, version = version + 1
		WHERE id = $2 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
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

func (r *PostgresCheckInRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.CheckIn, error) {
	out := []*domain.CheckIn{}
	query := `
		SELECT ` + checkInColumns + ` FROM check_ins
		WHERE habit_id = $1 AND deleted_at IS NULL
		ORDER BY checked_at ASC`

	if err := r.db.SelectContext(ctx, &out, query, habitID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresCheckInRepository) ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*domain.CheckIn, error) {
	out := []*domain.CheckIn{}
	query := `
		SELECT ` + checkInColumns + ` FROM check_ins
		WHERE habit_id = $1
		  AND checked_at >= $2
		  AND checked_at < $3
		  AND deleted_at IS NULL
		ORDER BY checked_at ASC`

	if err := r.db.SelectContext(ctx, &out, query, habitID, from, to); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresCheckInRepository) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.CheckIn, error) {
	out := []*domain.CheckIn{}
	query := `
		SELECT ` + checkInColumns + ` FROM check_ins
		WHERE user_id = $1
		  AND checked_at >= $2
		  AND checked_at < $3
		  AND deleted_at IS NULL
		ORDER BY checked_at ASC`

	if err := r.db.SelectContext(ctx, &out, query, userID, from, to); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresCheckInRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.CheckIn, error) {
	out := []*domain.CheckIn{}
	query := `
		SELECT ` + checkInColumns + ` FROM check_ins
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at ASC`

	if err := r.db.SelectContext(ctx, &out, query, userID, since); err != nil {
		return nil, err
	}
	return out, nil
}
