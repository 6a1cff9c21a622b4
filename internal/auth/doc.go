// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

// Package auth implements the identity and credential lifecycle for teachers
// and students.
//
// # Components
//
//   - Directory - user records and the teacher/student hierarchy
//   - Credentials - argon2id password hashes
//   - ResetTokenManager - single-use, time-limited password reset tokens
//   - Service - register, login, forgot-password and reset-password
//   - PurgeWorker - periodic removal of expired reset tokens
//
// Persistence goes through the UserRepository, PasswordResetRepository and
// Transactor interfaces; package postgres implements them. Login attempts are
// handed to a LoginRecorder, normally an audit.Recorder.
//
// # Errors
//
// Returned errors are oops errors wrapping one of the sentinels in errors.go.
// Storage timeouts wrap ErrUnavailable and are the only retryable failures;
// see IsRetryable.
package auth
