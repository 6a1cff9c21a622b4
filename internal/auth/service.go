// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/zyric/identity/internal/audit"
	"github.com/zyric/identity/pkg/errutil"
)

// ForgotPasswordMessage is returned for every forgot-password request so the
// response never reveals whether an email is registered.
const ForgotPasswordMessage = "If the email exists, a password reset link has been sent"

// LoginRecorder appends login attempts to the audit log. It must not block
// and never reports failure to the caller.
type LoginRecorder interface {
	Record(ctx context.Context, attempt audit.LoginAttempt)
}

// ResetNotifier delivers a raw reset token to its owner.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, to, token string, expiresAt time.Time) error
}

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Email     string
	Password  string
	Role      Role
	TeacherID *ulid.ULID
	Profile   Profile
}

// LoginRequest carries a credential check and where it came from.
type LoginRequest struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// Claims is what a successful login hands to the session issuer.
type Claims struct {
	UserID     ulid.ULID
	Email      string
	Role       Role
	TeacherID  *ulid.ULID
	IsVerified bool
}

// ForgotPasswordResponse is identical for known and unknown emails.
type ForgotPasswordResponse struct {
	Message string
}

// Service implements register, login, forgot-password and reset-password
// on top of the directory, credential store, reset token manager and audit log.
type Service struct {
	directory   *Directory
	credentials *Credentials
	resets      *ResetTokenManager
	recorder    LoginRecorder
	notifier    ResetNotifier
	logger      *slog.Logger
	clock       func() time.Time
	resetTTL    time.Duration
	delivery    time.Duration

	// deliveries tracks background token issuance started by ForgotPassword.
	deliveries sync.WaitGroup
	closeMu    sync.Mutex
	closed     bool

	// dummyHash is verified when an email is unknown so that the response
	// time does not depend on whether the account exists.
	dummyHash string
}

// NewService creates a Service.
func NewService(
	directory *Directory,
	credentials *Credentials,
	resets *ResetTokenManager,
	recorder LoginRecorder,
	notifier ResetNotifier,
	opts ...Option,
) (*Service, error) {
	switch {
	case directory == nil:
		return nil, oops.Errorf("user directory is required")
	case credentials == nil:
		return nil, oops.Errorf("credential store is required")
	case resets == nil:
		return nil, oops.Errorf("reset token manager is required")
	case recorder == nil:
		return nil, oops.Errorf("login recorder is required")
	case notifier == nil:
		return nil, oops.Errorf("reset notifier is required")
	}

	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return nil, oops.Code("AUTH_INIT_FAILED").Wrap(err)
	}
	dummy, err := credentials.Hash(hex.EncodeToString(seed))
	if err != nil {
		return nil, oops.Code("AUTH_INIT_FAILED").With("operation", "prepare dummy hash").Wrap(err)
	}

	o := buildOptions(opts)
	return &Service{
		directory:   directory,
		credentials: credentials,
		resets:      resets,
		recorder:    recorder,
		notifier:    notifier,
		logger:      o.logger,
		clock:       o.clock,
		resetTTL:    o.resetTTL,
		delivery:    o.deliveryTimeout,
		dummyHash:   dummy,
	}, nil
}

// Register checks the password policy, hashes the password and creates the user.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	hash, err := s.credentials.Hash(req.Password)
	if err != nil {
		return nil, oops.With("operation", "register").Wrap(err)
	}
	return s.directory.CreateUser(ctx, NewUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		TeacherID:    req.TeacherID,
		Profile:      req.Profile,
	})
}

// Login verifies a password. An unknown email, an inactive account and a
// wrong password all return the same AUTH_INVALID_CREDENTIALS error, and
// every attempt appends exactly one record to the audit log.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Claims, error) {
	attempt := audit.LoginAttempt{
		Email:     NormalizeEmail(req.Email),
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		At:        s.clock(),
	}

	user, err := s.directory.FindByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, ErrNotFound):
		_, _ = s.credentials.Verify(req.Password, s.dummyHash) //nolint:errcheck // timing only
		s.fail(ctx, attempt, OutcomeInvalidCredentials)
		return nil, invalidCredentials()
	case err != nil:
		s.fail(ctx, attempt, OutcomeError)
		return nil, oops.With("operation", "login").Wrap(err)
	}

	attempt.UserID = &user.ID
	ok, err := s.credentials.Verify(req.Password, user.PasswordHash)
	if err != nil {
		errutil.LogError(s.logger, "stored password hash is unreadable", oops.With("user_id", user.ID.String()).Wrap(err))
		ok = false
	}
	if !ok || !user.IsActive {
		s.fail(ctx, attempt, OutcomeInvalidCredentials)
		return nil, invalidCredentials()
	}

	attempt.Success = true
	s.recorder.Record(ctx, attempt)
	recordLogin(OutcomeSuccess)

	if s.credentials.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, req.Password)
	}

	return &Claims{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		TeacherID:  user.TeacherID,
		IsVerified: user.IsVerified,
	}, nil
}

func (s *Service) fail(ctx context.Context, attempt audit.LoginAttempt, outcome string) {
	attempt.Success = false
	s.recorder.Record(ctx, attempt)
	recordLogin(outcome)
}

// upgradeHash re-hashes with current parameters. Login has already succeeded,
// so failures are only logged.
func (s *Service) upgradeHash(ctx context.Context, userID ulid.ULID, password string) {
	hash, err := s.credentials.Hash(password)
	if err == nil {
		err = s.credentials.UpdatePassword(ctx, userID, hash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed", "user_id", userID.String(), "error", err)
		return
	}
	s.logger.InfoContext(ctx, "password hash upgraded", "user_id", userID.String())
}

// ForgotPassword answers with the same message whether or not email belongs
// to a user, and returns as soon as the lookup is done. For a known user the
// token is issued and delivered in the background, detached from ctx and
// bounded by the delivery timeout; failures there are logged. Only lookup
// failures are returned.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResponse, error) {
	resp := &ForgotPasswordResponse{Message: ForgotPasswordMessage}

	user, err := s.directory.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		s.logger.DebugContext(ctx, "password reset requested for unknown email")
		return resp, nil
	}
	if err != nil {
		return nil, oops.With("operation", "forgot password").Wrap(err)
	}

	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		s.logger.WarnContext(ctx, "password reset dropped during shutdown", "user_id", user.ID.String())
		return resp, nil
	}
	s.deliveries.Add(1)
	s.closeMu.Unlock()

	go func() {
		defer s.deliveries.Done()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.delivery)
		defer cancel()
		s.sendReset(dctx, user)
	}()
	return resp, nil
}

func (s *Service) sendReset(ctx context.Context, user *User) {
	raw, token, err := s.resets.Issue(ctx, user.ID, s.resetTTL)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, slog.LevelError, "password reset token issue failed",
			oops.With("user_id", user.ID.String()).Wrap(err))
		return
	}
	if err := s.notifier.SendPasswordReset(ctx, user.Email, raw, token.ExpiresAt); err != nil {
		errutil.LogErrorContext(ctx, s.logger, slog.LevelError, "password reset notification failed",
			oops.With("user_id", user.ID.String()).With("token_id", token.ID.String()).Wrap(err))
	}
}

// Close stops background reset deliveries from being started and waits for
// the running ones. ForgotPassword keeps answering after Close but no longer
// issues tokens. It returns an error if ctx ends first.
func (s *Service) Close(ctx context.Context) error {
	s.closeMu.Lock()
	s.closed = true
	s.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.deliveries.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return oops.Code("AUTH_DRAIN_TIMEOUT").Wrap(ctx.Err())
	}
}

// ResetPassword sets a new password using a reset token. The password policy
// is checked first so a rejected password does not burn the token.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.credentials.Hash(newPassword)
	if err != nil {
		return oops.With("operation", "reset password").Wrap(err)
	}
	userID, err := s.resets.ValidateAndConsume(ctx, rawToken, hash)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "password reset", "user_id", userID.String())
	return nil
}
