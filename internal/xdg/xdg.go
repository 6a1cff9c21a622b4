// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

// Package xdg provides XDG Base Directory paths for zyric.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "zyric"

// ConfigDir returns $XDG_CONFIG_HOME/zyric, defaulting to ~/.config/zyric.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// StateDir returns $XDG_STATE_HOME/zyric, defaulting to ~/.local/state/zyric.
// The audit write-ahead log lives here.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func resolve(envVar, homeRel string) (string, error) {
	if base := os.Getenv(envVar); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.Code("XDG_NO_HOME").With("env", envVar).Wrap(err)
	}
	return filepath.Join(home, homeRel, appName), nil
}

// EnsureDir creates path and its parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
