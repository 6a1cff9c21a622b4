// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"

	"github.com/zyric/identity/internal/audit"
	"github.com/zyric/identity/internal/auth"
)

// UserView is the printable form of a user. The password hash is never shown.
type UserView struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TeacherID    string `json:"teacher_id,omitempty"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Age          *int   `json:"age,omitempty"`
	Gender       string `json:"gender,omitempty"`
	Organization string `json:"organization,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
	IsActive     bool   `json:"is_active"`
	IsVerified   bool   `json:"is_verified"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func newUserView(u *auth.User) UserView {
	v := UserView{
		ID:           u.ID.String(),
		Email:        u.Email,
		Role:         string(u.Role),
		FirstName:    u.Profile.FirstName,
		LastName:     u.Profile.LastName,
		Age:          u.Profile.Age,
		Gender:       u.Profile.Gender,
		Organization: u.Profile.Organization,
		ProfileImage: u.Profile.ProfileImage,
		IsActive:     u.IsActive,
		IsVerified:   u.IsVerified,
		CreatedAt:    u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    u.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if u.TeacherID != nil {
		v.TeacherID = u.TeacherID.String()
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}

func printUser(w io.Writer, u *auth.User, asJSON bool) error {
	v := newUserView(u)
	if asJSON {
		return writeJSON(w, v)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", v.ID},
		{"Email", v.Email},
		{"Role", v.Role},
		{"Teacher", dash(v.TeacherID)},
		{"Name", v.FirstName + " " + v.LastName},
		{"Active", fmt.Sprint(v.IsActive)},
		{"Verified", fmt.Sprint(v.IsVerified)},
		{"Organization", dash(v.Organization)},
		{"Created", v.CreatedAt},
		{"Updated", v.UpdatedAt},
	}
	for _, r := range rows {
		//nolint:errcheck // flushed below
		fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
	}
	return flush(tw)
}

func printUsers(w io.Writer, users []*auth.User, asJSON bool) error {
	if asJSON {
		views := make([]UserView, 0, len(users))
		for _, u := range users {
			views = append(views, newUserView(u))
		}
		return writeJSON(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	//nolint:errcheck // flushed below
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tTEACHER\tACTIVE\tVERIFIED")
	for _, u := range users {
		v := newUserView(u)
		//nolint:errcheck // flushed below
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%t\t%t\n",
			v.ID, v.Email, v.FirstName, v.LastName, dash(v.TeacherID), v.IsActive, v.IsVerified)
	}
	return flush(tw)
}

func printHistory(w io.Writer, attempts []audit.LoginAttempt, asJSON bool) error {
	if asJSON {
		if attempts == nil {
			attempts = []audit.LoginAttempt{}
		}
		return writeJSON(w, attempts)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	//nolint:errcheck // flushed below
	fmt.Fprintln(tw, "ID\tTIME\tRESULT\tIP\tUSER AGENT")
	for _, a := range attempts {
		result := "failure"
		if a.Success {
			result = "success"
		}
		//nolint:errcheck // flushed below
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.At.UTC().Format(time.RFC3339), result, dash(a.IPAddress), dash(a.UserAgent))
	}
	return flush(tw)
}

func flush(tw *tabwriter.Writer) error {
	if err := tw.Flush(); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
