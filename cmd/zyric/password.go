// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/zyric/identity/internal/auth"
)

// NewPasswordCmd creates the password command group.
func NewPasswordCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Self-service password recovery",
	}
	cmd.AddCommand(newPasswordForgotCmd(deps), newPasswordResetCmd(deps))
	return cmd
}

func newPasswordForgotCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot EMAIL",
		Short: "Send a password reset token to EMAIL",
		Long: `Issue a single-use password reset token and deliver it with the
configured notifier. The output is the same whether or not EMAIL is registered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				resp, err := a.service.ForgotPassword(ctx, args[0])
				if err != nil {
					return err
				}
				cmd.Println(resp.Message)
				return nil
			})
		},
	}
}

func newPasswordResetCmd(deps *Deps) *cobra.Command {
	var token, password string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with a reset token",
		Long: `Consume a reset token and set a new password. The new password is
read from standard input when --password is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			newPassword, err := readSecret(cmd, password, "password")
			if err != nil {
				return err
			}
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				if err := a.service.ResetPassword(ctx, token, newPassword); err != nil {
					return err
				}
				cmd.Println("Password updated")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "reset token (required)")
	cmd.Flags().StringVar(&password, "password", "", "new password (default: read from stdin)")
	_ = cmd.MarkFlagRequired("token") //nolint:errcheck // flag exists
	return cmd
}

// NewLoginCmd creates the login command, a credential check that prints the
// claims a session issuer would receive.
func NewLoginCmd(deps *Deps) *cobra.Command {
	var (
		req    auth.LoginRequest
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check a password and print the session claims",
		Long: `Verify an email and password. Every attempt is written to the login
audit log. The password is read from standard input when --password is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readSecret(cmd, req.Password, "password")
			if err != nil {
				return err
			}
			attempt := req
			attempt.Password = password
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				claims, err := a.service.Login(ctx, attempt)
				if err != nil {
					return err
				}
				return printClaims(cmd, claims, asJSON)
			})
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (default: read from stdin)")
	cmd.Flags().StringVar(&req.IPAddress, "ip", "", "client IP address to record")
	cmd.Flags().StringVar(&req.UserAgent, "user-agent", "zyric-cli", "client user agent to record")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag exists
	return cmd
}

// ClaimsView is the printable form of auth.Claims.
type ClaimsView struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	TeacherID  string `json:"teacher_id,omitempty"`
	IsVerified bool   `json:"is_verified"`
}

func printClaims(cmd *cobra.Command, c *auth.Claims, asJSON bool) error {
	v := ClaimsView{
		UserID:     c.UserID.String(),
		Email:      c.Email,
		Role:       string(c.Role),
		IsVerified: c.IsVerified,
	}
	if c.TeacherID != nil {
		v.TeacherID = c.TeacherID.String()
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	cmd.Printf("Login succeeded: %s (%s, %s)\n", v.Email, v.Role, v.UserID)
	if !v.IsVerified {
		cmd.Println("Email not verified")
	}
	return nil
}
