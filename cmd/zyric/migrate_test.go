// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package main

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyric/identity/pkg/errutil"
)

type fakeMigrator struct {
	calls    []string
	version  uint
	dirty    bool
	pending  []uint
	applied  []uint
	upErr    error
	forced   int
	steps    []int
	closeErr error
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return nil
}

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, f.dirty, nil }
func (f *fakeMigrator) Pending() ([]uint, error)     { return f.pending, nil }
func (f *fakeMigrator) Applied() ([]uint, error)     { return f.applied, nil }

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return nil
}

func (f *fakeMigrator) Close() error {
	f.calls = append(f.calls, "close")
	return f.closeErr
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErrCode string
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "non-numeric returns error", input: "abc", wantErrCode: "INVALID_VERSION"},
		{name: "float parses as integer (Sscanf stops at dot)", input: "1.5", wantVersion: 1},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "negative parses; the migrator rejects it", input: "-1", wantVersion: -1},
		{name: "empty string returns error", input: "", wantErrCode: "INVALID_VERSION"},
		{name: "whitespace only returns error", input: "   ", wantErrCode: "INVALID_VERSION"},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)
			if tt.wantErrCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantErrCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestMigrateUp(t *testing.T) {
	isolateEnv(t)
	m := &fakeMigrator{}
	var gotURL string
	factory := func(url string) (migrator, error) {
		gotURL = url
		return m, nil
	}

	out, _, err := execute(t, testRoot(newMigrateCmd(factory)),
		"--database-url", "postgres://app@db/identity", "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, "postgres://app@db/identity", gotURL)
	assert.Equal(t, []string{"up", "close"}, m.calls)
	assert.Contains(t, out, "Migrations completed successfully")
}

func TestMigrateUp_DSNFromEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env@db/identity")
	var gotURL string
	factory := func(url string) (migrator, error) {
		gotURL = url
		return &fakeMigrator{}, nil
	}

	_, _, err := execute(t, testRoot(newMigrateCmd(factory)), "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env@db/identity", gotURL)
}

func TestMigrateUp_FailureStillCloses(t *testing.T) {
	isolateEnv(t)
	m := &fakeMigrator{upErr: oops.Code("MIGRATION_UP_FAILED").Errorf("boom")}
	factory := func(string) (migrator, error) { return m, nil }

	_, _, err := execute(t, testRoot(newMigrateCmd(factory)),
		"--database-url", "postgres://app@db/identity", "migrate", "up")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
	assert.Equal(t, []string{"up", "close"}, m.calls)
}

func TestMigrateDown_RequiresConfirmation(t *testing.T) {
	isolateEnv(t)
	m := &fakeMigrator{}
	factory := func(string) (migrator, error) { return m, nil }

	_, _, err := execute(t, testRoot(newMigrateCmd(factory)),
		"--database-url", "postgres://app@db/identity", "migrate", "down")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIRMATION_REQUIRED")
	assert.Empty(t, m.calls)

	out, _, err := execute(t, testRoot(newMigrateCmd(factory)),
		"--database-url", "postgres://app@db/identity", "migrate", "down", "--yes")
	require.NoError(t, err)
	assert.Equal(t, []string{"down", "close"}, m.calls)
	assert.Contains(t, out, "rolled back")
}

func TestMigrateStatus(t *testing.T) {
	isolateEnv(t)
	m := &fakeMigrator{version: 1, applied: []uint{1}, pending: []uint{2, 3}}
	factory := func(string) (migrator, error) { return m, nil }

	out, _, err := execute(t, testRoot(newMigrateCmd(factory)),
		"--database-url", "postgres://app@db/identity", "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 1 (clean)")
	assert.Contains(t, out, "000001_users")
	assert.Contains(t, out, "000002_password_reset_tokens")
	assert.Contains(t, out, "000003_login_history")
}

func TestMigrateStatus_DirtyAndUpToDate(t *testing.T) {
	isolateEnv(t)
	m := &fakeMigrator{version: 3, dirty: true, applied: []uint{1, 2, 3}}
	factory := func(string) (migrator, error) { return m, nil }

	out, _, err := execute(t, testRoot(newMigrateCmd(factory)),
		"--database-url", "postgres://app@db/identity", "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "(dirty)")
	assert.Contains(t, out, "No pending migrations")
}

func TestMigrateSteps(t *testing.T) {
	isolateEnv(t)
	m := &fakeMigrator{}
	factory := func(string) (migrator, error) { return m, nil }

	out, _, err := execute(t, testRoot(newMigrateCmd(factory)),
		"--database-url", "postgres://app@db/identity", "migrate", "up", "--steps", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied up to 2 migrations")

	out, _, err = execute(t, testRoot(newMigrateCmd(factory)),
		"--database-url", "postgres://app@db/identity", "migrate", "down", "--steps", "1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Rolled back up to 1 migrations")

	assert.Equal(t, []int{2, -1}, m.steps)
	assert.Equal(t, []string{"steps", "close", "steps", "close"}, m.calls)
}

func TestMigrateSteps_RejectsNegative(t *testing.T) {
	isolateEnv(t)
	opened := false
	factory := func(string) (migrator, error) {
		opened = true
		return &fakeMigrator{}, nil
	}

	for _, args := range [][]string{
		{"migrate", "up", "--steps", "-1"},
		{"migrate", "down", "--steps", "-1", "--yes"},
	} {
		_, _, err := execute(t, testRoot(newMigrateCmd(factory)),
			append([]string{"--database-url", "postgres://app@db/identity"}, args...)...)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "INVALID_STEPS")
	}
	assert.False(t, opened)
}

func TestMigrateForce(t *testing.T) {
	isolateEnv(t)
	m := &fakeMigrator{}
	factory := func(string) (migrator, error) { return m, nil }

	out, _, err := execute(t, testRoot(newMigrateCmd(factory)),
		"--database-url", "postgres://app@db/identity", "migrate", "force", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, m.forced)
	assert.Contains(t, out, "Forced schema version to 2")

	_, _, err = execute(t, testRoot(newMigrateCmd(factory)),
		"--database-url", "postgres://app@db/identity", "migrate", "force", "two")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestMigrate_FactoryError(t *testing.T) {
	isolateEnv(t)
	factory := func(string) (migrator, error) {
		return nil, oops.Code("MIGRATION_INIT_FAILED").Wrap(errors.New("bad url"))
	}

	_, _, err := execute(t, testRoot(newMigrateCmd(factory)),
		"--database-url", "mysql://nope", "migrate", "up")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrate_CloseErrorIsReported(t *testing.T) {
	isolateEnv(t)
	m := &fakeMigrator{closeErr: errors.New("close failed")}
	factory := func(string) (migrator, error) { return m, nil }

	_, errOut, err := execute(t, testRoot(newMigrateCmd(factory)),
		"--database-url", "postgres://app@db/identity", "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, errOut, "close failed")
}
