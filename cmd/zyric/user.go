// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/zyric/identity/internal/audit"
	"github.com/zyric/identity/internal/auth"
)

// registerFlags holds the flags of user register.
type registerFlags struct {
	email        string
	password     string
	role         string
	teacher      string
	firstName    string
	lastName     string
	age          int
	gender       string
	organization string
	profileImage string
	asJSON       bool
}

// NewUserCmd creates the user command group.
func NewUserCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage teacher and student accounts",
	}
	cmd.AddCommand(
		newUserRegisterCmd(deps),
		newUserFlagCmd(deps, "verify", "Mark a user's email as verified", func(ctx context.Context, d *auth.Directory, id ulid.ULID) error {
			return d.SetVerified(ctx, id)
		}),
		newUserFlagCmd(deps, "activate", "Allow a user to log in", func(ctx context.Context, d *auth.Directory, id ulid.ULID) error {
			return d.SetActive(ctx, id, true)
		}),
		newUserFlagCmd(deps, "deactivate", "Block a user from logging in", func(ctx context.Context, d *auth.Directory, id ulid.ULID) error {
			return d.SetActive(ctx, id, false)
		}),
		newUserShowCmd(deps),
		newUserTeachersCmd(deps),
		newUserStudentsCmd(deps),
		newUserHistoryCmd(deps),
	)
	return cmd
}

func newUserRegisterCmd(deps *Deps) *cobra.Command {
	f := &registerFlags{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a teacher or a student",
		Long: `Register a user. Students need --teacher naming an existing teacher.
The password is read from standard input when --password is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readSecret(cmd, f.password, "password")
			if err != nil {
				return err
			}
			req, err := f.request(cmd, password)
			if err != nil {
				return err
			}
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				user, err := a.service.Register(ctx, req)
				if err != nil {
					return err
				}
				return printUser(cmd.OutOrStdout(), user, f.asJSON)
			})
		},
	}

	cmd.Flags().StringVar(&f.email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&f.password, "password", "", "password (default: read from stdin)")
	cmd.Flags().StringVar(&f.role, "role", string(auth.RoleTeacher), "teacher or student")
	cmd.Flags().StringVar(&f.teacher, "teacher", "", "teacher ID for a student")
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "first name (required)")
	cmd.Flags().StringVar(&f.lastName, "last-name", "", "last name (required)")
	cmd.Flags().IntVar(&f.age, "age", 0, "age")
	cmd.Flags().StringVar(&f.gender, "gender", "", "gender")
	cmd.Flags().StringVar(&f.organization, "organization", "", "organization")
	cmd.Flags().StringVar(&f.profileImage, "profile-image", "", "profile image URL")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("email")      //nolint:errcheck // flag exists
	_ = cmd.MarkFlagRequired("first-name") //nolint:errcheck // flag exists
	_ = cmd.MarkFlagRequired("last-name")  //nolint:errcheck // flag exists

	return cmd
}

// request converts the flags. Hierarchy and profile rules are left to the
// service so the CLI reports the same errors as any other caller.
func (f *registerFlags) request(cmd *cobra.Command, password string) (auth.RegisterRequest, error) {
	role := auth.Role(strings.ToLower(strings.TrimSpace(f.role)))
	if !role.Valid() {
		return auth.RegisterRequest{}, oops.Code("INVALID_ROLE").
			With("role", f.role).
			Errorf("role must be %s or %s", auth.RoleTeacher, auth.RoleStudent)
	}

	req := auth.RegisterRequest{
		Email:    f.email,
		Password: password,
		Role:     role,
		Profile: auth.Profile{
			FirstName:    f.firstName,
			LastName:     f.lastName,
			Gender:       f.gender,
			Organization: f.organization,
			ProfileImage: f.profileImage,
		},
	}
	if f.teacher != "" {
		id, err := parseID(f.teacher, "teacher")
		if err != nil {
			return auth.RegisterRequest{}, err
		}
		req.TeacherID = &id
	}
	if cmd.Flags().Changed("age") {
		age := f.age
		req.Profile.Age = &age
	}
	return req, nil
}

func newUserFlagCmd(deps *Deps, use, short string, apply func(context.Context, *auth.Directory, ulid.ULID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " USER_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				if err := apply(ctx, a.directory, id); err != nil {
					return err
				}
				cmd.Printf("User %s updated\n", id)
				return nil
			})
		},
	}
}

func newUserShowCmd(deps *Deps) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show USER_ID|EMAIL",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				user, err := lookupUser(ctx, a.directory, args[0])
				if err != nil {
					return err
				}
				return printUser(cmd.OutOrStdout(), user, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newUserTeachersCmd(deps *Deps) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "teachers",
		Short: "List teachers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				users, err := a.directory.ListTeachers(ctx)
				if err != nil {
					return err
				}
				return printUsers(cmd.OutOrStdout(), users, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newUserStudentsCmd(deps *Deps) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "students TEACHER_ID",
		Short: "List the students of a teacher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			teacherID, err := parseID(args[0], "teacher")
			if err != nil {
				return err
			}
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				users, err := a.directory.ListStudents(ctx, teacherID)
				if err != nil {
					return err
				}
				return printUsers(cmd.OutOrStdout(), users, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newUserHistoryCmd(deps *Deps) *cobra.Command {
	var (
		asJSON bool
		before string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history USER_ID",
		Short: "Show a user's login attempts, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			var cursor ulid.ULID
			if before != "" {
				if cursor, err = parseID(before, "before"); err != nil {
					return err
				}
			}
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				attempts, err := a.history.History(ctx, userID, cursor, limit)
				if err != nil {
					return err
				}
				return printHistory(cmd.OutOrStdout(), attempts, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.Flags().StringVar(&before, "before", "", "show attempts older than this attempt ID")
	cmd.Flags().IntVar(&limit, "limit", 50, fmt.Sprintf("maximum attempts to show (at most %d)", audit.MaxHistoryPage))
	return cmd
}

// lookupUser finds a user by ID when ref parses as one, otherwise by email.
func lookupUser(ctx context.Context, d *auth.Directory, ref string) (*auth.User, error) {
	if id, err := ulid.Parse(ref); err == nil {
		return d.FindByID(ctx, id)
	}
	return d.FindByEmail(ctx, ref)
}

func parseID(s, field string) (ulid.ULID, error) {
	id, err := ulid.Parse(strings.TrimSpace(s))
	if err != nil {
		return ulid.ULID{}, oops.Code("INVALID_ID").With("field", field).With("value", s).Wrap(err)
	}
	return id, nil
}

// readSecret returns value, or the first line of stdin when value is empty.
func readSecret(cmd *cobra.Command, value, name string) (string, error) {
	if value != "" {
		return value, nil
	}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", oops.Code("INPUT_FAILED").With("field", name).Wrap(err)
		}
		return "", oops.Code("INPUT_REQUIRED").With("field", name).Errorf("%s is required", name)
	}
	secret := strings.TrimRight(scanner.Text(), "\r")
	if secret == "" {
		return "", oops.Code("INPUT_REQUIRED").With("field", name).Errorf("%s is required", name)
	}
	return secret, nil
}
