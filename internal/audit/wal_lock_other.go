// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

//go:build !unix

package audit

// lockWAL is a no-op where flock is unavailable. Only one process may use a
// WAL path on these platforms.
func lockWAL(string) (func(), error) {
	return func() {}, nil
}
