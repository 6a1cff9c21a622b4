// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/zyric/identity/internal/config"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	var out string
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return oops.Code("OUTPUT_FAILED").Wrap(err)
			}
			if err := os.WriteFile(out, append(data, '\n'), 0o600); err != nil {
				return oops.Code("OUTPUT_FAILED").With("path", out).Wrap(err)
			}
			cmd.Printf("Generated %s\n", out)
			return nil
		},
	}
	schemaCmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")

	validateCmd := &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Check a config file against the schema and the value rules",
		Long: `Validate FILE (default: --config or $XDG_CONFIG_HOME/zyric/config.yaml)
against the JSON Schema, then load it with flags and environment applied and
check every value.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd, args)
		},
	}

	cmd.AddCommand(schemaCmd, validateCmd)
	return cmd
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		if err := cmd.Flags().Set("config", args[0]); err != nil {
			return oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}
	path := cmd.Flags().Lookup("config").Value.String()
	if path == "" {
		def, err := config.DefaultPath()
		if err != nil {
			return oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
		path = def
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	if err := config.ValidateSchema(data); err != nil {
		cmd.PrintErrln(config.FormatSchemaError(err))
		return err
	}
	if err := cmd.Flags().Set("config", path); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}
	if _, err := config.Load(cmd.Flags()); err != nil {
		return err
	}
	cmd.Printf("%s is valid\n", path)
	return nil
}
