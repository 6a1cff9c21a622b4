// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

//go:build integration

package auth_test

import (
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/zyric/identity/internal/audit"
	"github.com/zyric/identity/internal/auth"
)

func uniqueEmail(prefix string) string {
	return prefix + "-" + ulid.Make().String() + "@example.com"
}

// awaitToken waits for a reset token for email that differs from previous.
// Tokens are delivered in the background after ForgotPassword returns.
func awaitToken(email, previous string) string {
	var token string
	Eventually(func() bool {
		t, ok := env.outbox.tokenFor(email)
		token = t
		return ok && t != previous
	}).WithTimeout(5 * time.Second).WithPolling(20 * time.Millisecond).Should(BeTrue())
	return token
}

var _ = Describe("Registration", func() {
	It("links a student to an existing teacher", func() {
		teacher, err := env.service.Register(env.ctx, auth.RegisterRequest{
			Email:    uniqueEmail("teacher"),
			Password: "Teacher123",
			Role:     auth.RoleTeacher,
			Profile:  auth.Profile{FirstName: "Ada", LastName: "Lovelace"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(teacher.TeacherID).To(BeNil())

		student, err := env.service.Register(env.ctx, auth.RegisterRequest{
			Email:     uniqueEmail("student"),
			Password:  "Student123",
			Role:      auth.RoleStudent,
			TeacherID: &teacher.ID,
			Profile:   auth.Profile{FirstName: "Grace", LastName: "Hopper"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(student.TeacherID).NotTo(BeNil())
		Expect(*student.TeacherID).To(Equal(teacher.ID))

		students, err := env.directory.ListStudents(env.ctx, teacher.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(students).To(HaveLen(1))
		Expect(students[0].ID).To(Equal(student.ID))
	})

	It("rejects a student whose teacher does not exist", func() {
		missing := ulid.Make()
		_, err := env.service.Register(env.ctx, auth.RegisterRequest{
			Email:     uniqueEmail("orphan"),
			Password:  "Student123",
			Role:      auth.RoleStudent,
			TeacherID: &missing,
			Profile:   auth.Profile{FirstName: "No", LastName: "Teacher"},
		})
		Expect(err).To(MatchError(auth.ErrInvalidHierarchy))
	})

	It("rejects a duplicate email regardless of case", func() {
		email := uniqueEmail("dup")
		req := auth.RegisterRequest{
			Email:    email,
			Password: "Teacher123",
			Role:     auth.RoleTeacher,
			Profile:  auth.Profile{FirstName: "First", LastName: "Copy"},
		}
		_, err := env.service.Register(env.ctx, req)
		Expect(err).NotTo(HaveOccurred())

		req.Email = "DUP" + email[3:]
		_, err = env.service.Register(env.ctx, req)
		Expect(err).To(MatchError(auth.ErrDuplicateEmail))
	})
})

var _ = Describe("Password reset", func() {
	var (
		email string
		user  *auth.User
	)

	BeforeEach(func() {
		email = uniqueEmail("reset")
		var err error
		user, err = env.service.Register(env.ctx, auth.RegisterRequest{
			Email:    email,
			Password: "Original123",
			Role:     auth.RoleTeacher,
			Profile:  auth.Profile{FirstName: "Reset", LastName: "Me"},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("replaces the password and consumes the token", func() {
		resp, err := env.service.ForgotPassword(env.ctx, email)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Message).To(Equal(auth.ForgotPasswordMessage))

		token := awaitToken(email, "")

		Expect(env.service.ResetPassword(env.ctx, token, "Replaced456")).To(Succeed())

		claims, err := env.service.Login(env.ctx, auth.LoginRequest{Email: email, Password: "Replaced456"})
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.UserID).To(Equal(user.ID))

		_, err = env.service.Login(env.ctx, auth.LoginRequest{Email: email, Password: "Original123"})
		Expect(err).To(MatchError(auth.ErrInvalidCredentials))

		err = env.service.ResetPassword(env.ctx, token, "Another789")
		Expect(err).To(MatchError(auth.ErrTokenAlreadyUsed))
	})

	It("revokes earlier tokens when a new one is issued", func() {
		_, err := env.service.ForgotPassword(env.ctx, email)
		Expect(err).NotTo(HaveOccurred())
		first := awaitToken(email, "")

		_, err = env.service.ForgotPassword(env.ctx, email)
		Expect(err).NotTo(HaveOccurred())
		second := awaitToken(email, first)

		Expect(env.service.ResetPassword(env.ctx, first, "Replaced456")).To(MatchError(auth.ErrInvalidToken))
		Expect(env.service.ResetPassword(env.ctx, second, "Replaced456")).To(Succeed())
	})

	It("rejects an expired token", func() {
		raw, _, err := env.resets.Issue(env.ctx, user.ID, time.Millisecond)
		Expect(err).NotTo(HaveOccurred())
		time.Sleep(20 * time.Millisecond)

		Expect(env.service.ResetPassword(env.ctx, raw, "Replaced456")).To(MatchError(auth.ErrTokenExpired))
	})

	It("answers uniformly for an unknown email", func() {
		unknown := uniqueEmail("nobody")
		resp, err := env.service.ForgotPassword(env.ctx, unknown)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Message).To(Equal(auth.ForgotPasswordMessage))

		Consistently(func() bool {
			_, ok := env.outbox.tokenFor(unknown)
			return ok
		}).WithTimeout(200 * time.Millisecond).Should(BeFalse())
	})
})

var _ = Describe("Login audit", func() {
	It("records successful and failed attempts for the user", func() {
		email := uniqueEmail("audited")
		user, err := env.service.Register(env.ctx, auth.RegisterRequest{
			Email:    email,
			Password: "Audited123",
			Role:     auth.RoleTeacher,
			Profile:  auth.Profile{FirstName: "Audit", LastName: "Trail"},
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = env.service.Login(env.ctx, auth.LoginRequest{
			Email: email, Password: "Audited123", IPAddress: "192.0.2.10", UserAgent: "ginkgo",
		})
		Expect(err).NotTo(HaveOccurred())
		_, err = env.service.Login(env.ctx, auth.LoginRequest{
			Email: email, Password: "Wrong1234", IPAddress: "192.0.2.10", UserAgent: "ginkgo",
		})
		Expect(err).To(MatchError(auth.ErrInvalidCredentials))

		var history []audit.LoginAttempt
		Eventually(func(g Gomega) {
			history, err = env.history.History(env.ctx, user.ID, ulid.ULID{}, 10)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(history).To(HaveLen(2))
		}).WithTimeout(5 * time.Second).WithPolling(50 * time.Millisecond).Should(Succeed())

		// Newest first.
		Expect(history[0].Success).To(BeFalse())
		Expect(history[1].Success).To(BeTrue())
		Expect(history[1].IPAddress).To(Equal("192.0.2.10"))
		Expect(history[1].UserAgent).To(Equal("ginkgo"))
	})
})
