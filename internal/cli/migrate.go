package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-tracker/internal/config"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the configured database",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := repository.OpenPostgres(ctx, cfg.Database.Driver, cfg.Database.DSN(), repository.PostgresOptions{})
		if err != nil {
			return err
		}
		defer db.Close()

		applied, err := repository.Migrate(ctx, db, repository.DialectPostgres)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)

	case config.DriverSQLite:
		// OpenSQLite migrates on open.
		db, err := repository.OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "sqlite schema up to date at %s\n", cfg.Storage.SQLitePath)

	default:
		return fmt.Errorf("storage driver %q has no schema to migrate", cfg.Storage.Driver)
	}
	return nil
}
