// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

//go:build unix

package audit

import (
	"errors"
	"os"

	"github.com/samber/oops"
	"golang.org/x/sys/unix"
)

// lockWAL takes an exclusive advisory lock on path+".lock". Every process
// that appends to or rewrites the same WAL serializes on it. The returned
// function releases the lock.
func lockWAL(path string) (func(), error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, oops.Code("AUDIT_WAL_LOCK_FAILED").With("path", lockPath).Wrap(err)
	}
	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX) //nolint:gosec // fd fits in int
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		_ = f.Close() //nolint:errcheck // lock error takes precedence
		return nil, oops.Code("AUDIT_WAL_LOCK_FAILED").With("path", lockPath).Wrap(err)
	}
	return func() {
		// Closing the descriptor drops the flock.
		_ = f.Close() //nolint:errcheck // nothing useful to do on failure
	}, nil
}
