package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	for _, dialect := range []string{DialectPostgres, DialectSQLite} {
		t.Run(dialect, func(t *testing.T) {
			migrations, err := LoadMigrations(dialect)
			require.NoError(t, err)
			require.NotEmpty(t, migrations)

			assert.Equal(t, 1, migrations[0].Version)
			assert.Equal(t, "init", migrations[0].Name)
			assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS check_ins")
		})
	}

	t.Run("Unknown dialect", func(t *testing.T) {
		_, err := LoadMigrations("oracle")
		assert.Error(t, err)
	})
}
