// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

//go:build integration

package cli_test

import (
	"context"
	"encoding/json"
	"regexp"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var tokenLine = regexp.MustCompile(`(?m)^([0-9a-f]{64})$`)

type userJSON struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TeacherID string `json:"teacher_id"`
}

var _ = Describe("zyric CLI", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetDatabase(ctx, env.pool)

		r := zyric(ctx, "", "migrate", "up")
		Expect(r.err).NotTo(HaveOccurred(), "migrate up failed: %s", r.stderr)
		Expect(r.stderr + r.stdout).To(ContainSubstring("Migrations completed successfully"))
	})

	registerTeacher := func(email string) userJSON {
		r := zyric(ctx, "Teacher123\n", "user", "register",
			"--email", email, "--first-name", "Ada", "--last-name", "Lovelace", "--json")
		Expect(r.err).NotTo(HaveOccurred(), "register failed: %s", r.stderr)
		var u userJSON
		Expect(json.Unmarshal([]byte(r.stdout), &u)).To(Succeed())
		return u
	}

	Describe("migrate status", func() {
		It("reports every migration as applied", func() {
			r := zyric(ctx, "", "migrate", "status")
			Expect(r.err).NotTo(HaveOccurred(), "status failed: %s", r.stderr)
			out := r.stderr + r.stdout
			Expect(out).To(ContainSubstring("(clean)"))
			Expect(out).To(ContainSubstring("No pending migrations"))
		})
	})

	Describe("user register", func() {
		It("creates a teacher and a linked student", func() {
			teacher := registerTeacher("Teacher@Example.com")
			Expect(teacher.Email).To(Equal("teacher@example.com"))
			Expect(teacher.Role).To(Equal("teacher"))

			r := zyric(ctx, "", "user", "register",
				"--email", "student@example.com", "--password", "Student123",
				"--role", "student", "--teacher", teacher.ID,
				"--first-name", "Grace", "--last-name", "Hopper", "--json")
			Expect(r.err).NotTo(HaveOccurred(), "student register failed: %s", r.stderr)
			var student userJSON
			Expect(json.Unmarshal([]byte(r.stdout), &student)).To(Succeed())
			Expect(student.TeacherID).To(Equal(teacher.ID))

			var count int
			err := env.pool.QueryRow(ctx,
				"SELECT COUNT(*) FROM users WHERE teacher_id = $1", teacher.ID).Scan(&count)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})

		It("fails for a duplicate email", func() {
			registerTeacher("dup@example.com")
			r := zyric(ctx, "Teacher123\n", "user", "register",
				"--email", "DUP@example.com", "--first-name", "Ada", "--last-name", "Again")
			Expect(r.err).To(HaveOccurred())
		})
	})

	Describe("password reset", func() {
		It("resets the password with the printed token", func() {
			registerTeacher("reset@example.com")

			r := zyric(ctx, "", "password", "forgot", "reset@example.com")
			Expect(r.err).NotTo(HaveOccurred(), "forgot failed: %s", r.stderr)
			m := tokenLine.FindStringSubmatch(r.stdout)
			Expect(m).To(HaveLen(2), "no token in output: %s", r.stdout)
			token := m[1]

			r = zyric(ctx, "Replaced456\n", "password", "reset", "--token", token)
			Expect(r.err).NotTo(HaveOccurred(), "reset failed: %s", r.stderr)

			r = zyric(ctx, "", "login", "--email", "reset@example.com", "--password", "Replaced456")
			Expect(r.err).NotTo(HaveOccurred(), "login failed: %s", r.stderr)
			Expect(r.stderr + r.stdout).To(ContainSubstring("Login succeeded: reset@example.com"))

			r = zyric(ctx, "", "login", "--email", "reset@example.com", "--password", "Teacher123")
			Expect(r.err).To(HaveOccurred())

			r = zyric(ctx, "Another789\n", "password", "reset", "--token", token)
			Expect(r.err).To(HaveOccurred())
		})

		It("prints nothing for an unknown email", func() {
			r := zyric(ctx, "", "password", "forgot", "nobody@example.com")
			Expect(r.err).NotTo(HaveOccurred(), "forgot failed: %s", r.stderr)
			Expect(tokenLine.MatchString(r.stdout)).To(BeFalse())
		})
	})

	Describe("user history", func() {
		It("lists login attempts newest first", func() {
			teacher := registerTeacher("audit@example.com")

			r := zyric(ctx, "", "login", "--email", "audit@example.com", "--password", "Teacher123")
			Expect(r.err).NotTo(HaveOccurred(), "login failed: %s", r.stderr)
			r = zyric(ctx, "", "login", "--email", "audit@example.com", "--password", "Wrong12345")
			Expect(r.err).To(HaveOccurred())

			// The CLI flushes the audit log on exit.
			r = zyric(ctx, "", "user", "history", teacher.ID, "--json")
			Expect(r.err).NotTo(HaveOccurred(), "history failed: %s", r.stderr)
			var attempts []struct {
				Success bool `json:"success"`
			}
			Expect(json.Unmarshal([]byte(r.stdout), &attempts)).To(Succeed())
			Expect(attempts).To(HaveLen(2))
			Expect(attempts[0].Success).To(BeFalse())
			Expect(attempts[1].Success).To(BeTrue())
		})
	})
})
