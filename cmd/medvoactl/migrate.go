package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/medvoa-backend/internal/config"
	"github.com/wekeepgrowing/medvoa-backend/internal/infrastructure/database"
)

func newMigrateCommand(opts *options) *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the postgres schema migrations",
		Long: `Runs the SQL migrations embedded in the binary against the postgres
database from the configuration, or against --database-url when given.`,
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "postgres URL overriding the configured database")

	withMigrator := func(cmd *cobra.Command, fn func(*database.Migrator) error) error {
		url := databaseURL
		if url == "" {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("migrations only apply to the postgres driver, configured driver is %q", cfg.Database.Driver)
			}
			url = cfg.Database.URL()
		}

		log, err := opts.logger()
		if err != nil {
			return err
		}
		migrator, err := database.NewMigrator(url, log)
		if err != nil {
			return err
		}
		defer migrator.Close()
		return fn(migrator)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, func(m *database.Migrator) error {
					if err := m.Up(); err != nil {
						return err
					}
					return printVersion(cmd, m)
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[0])
					}
					steps = n
				}
				return withMigrator(cmd, func(m *database.Migrator) error {
					if err := m.Down(steps); err != nil {
						return err
					}
					return printVersion(cmd, m)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied migration version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, func(m *database.Migrator) error {
					return printVersion(cmd, m)
				})
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the version and clear the dirty flag without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return withMigrator(cmd, func(m *database.Migrator) error {
					if err := m.Force(version); err != nil {
						return err
					}
					return printVersion(cmd, m)
				})
			},
		},
	)

	return cmd
}

func printVersion(cmd *cobra.Command, m *database.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d%s\n", version, suffix)
	return nil
}
