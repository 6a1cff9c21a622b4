// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zyric/identity/internal/config"
	"github.com/zyric/identity/internal/logging"
)

const serviceName = "zyric"

// NewRootCmd creates the root command for the zyric CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zyric",
		Short: "Zyric - identity and credentials for teachers and students",
		Long: `Zyric manages teacher and student accounts, password credentials,
single-use password reset tokens and the login audit log on PostgreSQL.`,
		SilenceUsage: true,
	}

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewWorkerCmd(nil))
	cmd.AddCommand(NewPurgeCmd(nil))
	cmd.AddCommand(NewUserCmd(nil))
	cmd.AddCommand(NewPasswordCmd(nil))
	cmd.AddCommand(NewLoginCmd(nil))
	cmd.AddCommand(NewAuditCmd(nil))
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadRuntime loads configuration for cmd and installs the default logger.
func loadRuntime(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger := logging.Setup(serviceName, cmd.Root().Version, cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return cfg, logger, nil
}
