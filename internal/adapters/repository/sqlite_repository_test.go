package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "kanso.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteStore_Contract(t *testing.T) {
	db := setupSQLite(t)
	runStoreContract(t, NewSQLiteHabitRepository(db), NewSQLiteCheckInRepository(db), NewSQLiteUserRepository(db))
}

func TestSQLiteStore_MigrateIsIdempotent(t *testing.T) {
	db := setupSQLite(t)

	applied, err := Migrate(context.Background(), db, DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	var version int
	require.NoError(t, db.Get(&version, `SELECT MAX(version) FROM schema_migrations`))
	assert.Equal(t, 1, version)
}

func TestSQLiteTimeLayout(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	in := time.Date(2024, 3, 10, 0, 30, 0, 0, cet)

	s := formatTime(in)
	assert.Equal(t, "2024-03-09T23:30:00.000000000Z", s)

	out, err := parseTime(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))

	assert.Less(t, formatTime(in), formatTime(in.Add(time.Nanosecond)), "text order follows time order")

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}
