package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/triage-risk-service/internal/database"
)

func newMigrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	run := func(fn func(cmd *cobra.Command, runner *database.MigrationRunner) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			runner, err := database.NewMigrationRunner(database.URL(a.cfg.Database), a.cfg.Database.MigrationsPath, a.logger)
			if err != nil {
				return err
			}
			defer runner.Close()
			return fn(cmd, runner)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: run(func(cmd *cobra.Command, runner *database.MigrationRunner) error {
				return runner.Up(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: run(func(cmd *cobra.Command, runner *database.MigrationRunner) error {
				return runner.Down(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			RunE: run(func(cmd *cobra.Command, runner *database.MigrationRunner) error {
				version, dirty, err := runner.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "check",
			Short: "Fail unless the schema is at the version this build expects",
			RunE: run(func(cmd *cobra.Command, runner *database.MigrationRunner) error {
				if err := runner.CheckCurrent(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema current at version %d\n", database.SchemaVersion)
				return nil
			}),
		},
	)
	return cmd
}
