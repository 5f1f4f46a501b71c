package cmd

import (
	"fmt"

	"presence-monitor/internal/config"
	"presence-monitor/internal/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.Backend != config.BackendPostgres {
			return fmt.Errorf("migrate needs store.backend=postgres, have %q", cfg.Store.Backend)
		}
		pg, err := db.Init(cmd.Context(), db.Config{
			ConnString:     cfg.Postgres.ConnString,
			MigrationsPath: cfg.Postgres.MigrationsPath,
			Timeout:        cfg.Store.Timeout,
		})
		if err != nil {
			return err
		}
		pg.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
