package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-tracker/internal/logger"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// Migration is one numbered schema step, loaded from NNN_name.sql.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// LoadMigrations returns the embedded migrations of a dialect sorted by version.
func LoadMigrations(dialect string) ([]Migration, error) {
	sub, err := fs.Sub(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("migrate: unknown dialect %q: %w", dialect, err)
	}

	files, err := fs.ReadDir(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("migrate: unknown dialect %q: %w", dialect, err)
	}

	var out []Migration
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}

		parts := strings.SplitN(f.Name(), "_", 2)
		if len(parts) < 2 {
			return nil, fmt.Errorf("migrate: invalid filename %s (expected NNN_name.sql)", f.Name())
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil || version < 1 {
			return nil, fmt.Errorf("migrate: invalid version in %s", f.Name())
		}

		content, err := fs.ReadFile(sub, f.Name())
		if err != nil {
			return nil, fmt.Errorf("migrate: read %s: %w", f.Name(), err)
		}

		out = append(out, Migration{
			Version: version,
			Name:    strings.TrimSuffix(parts[1], ".sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })

	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("migrate: duplicate version %d", out[i].Version)
		}
	}

	return out, nil
}

// Migrate applies every pending migration, each in its own transaction, and
// returns how many were applied.
func Migrate(ctx context.Context, db *sqlx.DB, dialect string) (int, error) {
	migrations, err := LoadMigrations(dialect)
	if err != nil {
		return 0, err
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return 0, fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	if err := db.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return 0, fmt.Errorf("migrate: read current version: %w", err)
	}

	if n := len(migrations); n > 0 && current > migrations[n-1].Version {
		return 0, fmt.Errorf("migrate: database version %d is newer than supported version %d", current, migrations[n-1].Version)
	}

	insert := db.Rebind(`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`)

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("migrate: begin %03d: %w", m.Version, err)
		}

		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("migrate: apply %03d_%s: %w", m.Version, m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, insert, m.Version, m.Name, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("migrate: record %03d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("migrate: commit %03d: %w", m.Version, err)
		}

		logger.Info("migration applied", "dialect", dialect, "version", m.Version, "name", m.Name)
		applied++
	}

	return applied, nil
}
