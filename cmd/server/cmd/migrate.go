package cmd

import (
	"fmt"

	"github.com/ifeis/server/internal/config"
	"github.com/ifeis/server/internal/storage/postgres"
	"github.com/spf13/cobra"
)

var migrationsPath string

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or roll back the schema migrations compiled into the binary, or
those in --path when given.

"migrate up" also creates or upgrades the River job tables.`,
	}
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", "", "read migrations from this directory instead of the built-in set")

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := migrator(cfg).Down(steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  runMigrateUp,
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return fmt.Errorf("config error: %w", err)
				}
				version, dirty, err := migrator(cfg).Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version: %d\n", version)
				if dirty {
					fmt.Fprintln(cmd.OutOrStdout(), "dirty: the last migration failed; fix it and force the version by hand")
				}
				return nil
			},
		},
	)
	return cmd
}

func migrator(cfg config.Config) postgres.Migrator {
	return postgres.Migrator{DatabaseURL: cfg.Database.URL, Dir: migrationsPath}
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := migrator(cfg).Up(); err != nil {
		return err
	}

	pool, err := openPool(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.MigrateRiver(cmd.Context(), pool); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}
