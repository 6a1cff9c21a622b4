// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/zyric/identity/internal/config"
	"github.com/zyric/identity/internal/store"
)

// migrator is the subset of store.Migrator used by the migrate commands.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Pending() ([]uint, error)
	Applied() ([]uint, error)
	Close() error
}

// migratorFactory opens a migrator for a database URL.
type migratorFactory func(databaseURL string) (migrator, error)

func defaultMigratorFactory(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(defaultMigratorFactory)
}

func newMigrateCmd(factory migratorFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, roll back or inspect the users, password reset token and
login history schema in the PostgreSQL database.`,
	}

	var upSteps int
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if upSteps < 0 {
				return oops.Code("INVALID_STEPS").With("steps", upSteps).Errorf("--steps cannot be negative")
			}
			return withMigrator(cmd, factory, func(m migrator) error {
				if upSteps > 0 {
					if err := m.Steps(upSteps); err != nil {
						return err
					}
					cmd.Printf("Applied up to %d migrations\n", upSteps)
					return nil
				}
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
	up.Flags().IntVar(&upSteps, "steps", 0, "apply at most this many migrations (0 applies all)")

	var (
		yes       bool
		downSteps int
	)
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (drops identity data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if downSteps < 0 {
				return oops.Code("INVALID_STEPS").With("steps", downSteps).Errorf("--steps cannot be negative")
			}
			if !yes {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down drops identity data; pass --yes to confirm")
			}
			return withMigrator(cmd, factory, func(m migrator) error {
				if downSteps > 0 {
					if err := m.Steps(-downSteps); err != nil {
						return err
					}
					cmd.Printf("Rolled back up to %d migrations\n", downSteps)
					return nil
				}
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&yes, "yes", false, "confirm dropping data")
	down.Flags().IntVar(&downSteps, "steps", 0, "roll back at most this many migrations (0 rolls back all)")

	cmd.AddCommand(
		up,
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied version and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, factory, func(m migrator) error {
					return printMigrationStatus(cmd, m)
				})
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Mark VERSION as applied without running it (dirty schema recovery)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := parseForceVersion(args[0])
				if err != nil {
					return err
				}
				return withMigrator(cmd, factory, func(m migrator) error {
					if err := m.Force(version); err != nil {
						return err
					}
					cmd.Printf("Forced schema version to %d\n", version)
					return nil
				})
			},
		},
	)
	return cmd
}

func withMigrator(cmd *cobra.Command, factory migratorFactory, fn func(migrator) error) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Database.DSN == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database URL is required: set --database-url, database.dsn or %s", config.DatabaseURLEnv)
	}

	m, err := factory(cfg.Database.DSN)
	if err != nil {
		return oops.With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrf("warning: closing migrator: %v\n", closeErr)
		}
	}()
	return fn(m)
}

func printMigrationStatus(cmd *cobra.Command, m migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	pending, err := m.Pending()
	if err != nil {
		return err
	}

	applied, err := m.Applied()
	if err != nil {
		return err
	}

	state := "clean"
	if dirty {
		state = "dirty"
	}
	cmd.Printf("Current version: %d (%s)\n", version, state)
	if err := printMigrations(cmd, "Applied", applied); err != nil {
		return err
	}
	if len(pending) == 0 {
		cmd.Println("No pending migrations")
		return nil
	}
	return printMigrations(cmd, "Pending", pending)
}

func printMigrations(cmd *cobra.Command, label string, versions []uint) error {
	if len(versions) == 0 {
		return nil
	}
	cmd.Printf("%s migrations:\n", label)
	for _, v := range versions {
		name, err := store.MigrationName(v)
		if err != nil {
			return err
		}
		cmd.Printf("  %s\n", name)
	}
	return nil
}

// parseForceVersion reads a migration version. Sscanf stops at the first
// non-digit, so "3abc" is version 3.
func parseForceVersion(s string) (int, error) {
	s = strings.TrimSpace(s)
	var version int
	if _, err := fmt.Sscanf(s, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer")
	}
	return version, nil
}
