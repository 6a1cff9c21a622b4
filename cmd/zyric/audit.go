// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"
)

// NewAuditCmd creates the audit command group.
func NewAuditCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Login audit log maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "replay",
		Short: "Write login attempts left in the write-ahead log to the database",
		Long: `Write login attempts left in the write-ahead log to the database.

The log is locked while it is replayed, so running servers that share it
wait to append until the replay has finished.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				n, err := a.recorder.ReplayWAL(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("Replayed %d login attempts from %s\n", n, a.recorder.WALPath())
				return nil
			})
		},
	})
	return cmd
}
