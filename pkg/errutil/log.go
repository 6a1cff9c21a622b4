// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

// Package errutil holds helpers for oops errors shared by zyric packages.
package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the oops error code carried by err, or "" if there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch code := oopsErr.Code().(type) {
	case nil:
		return ""
	case string:
		return code
	default:
		return fmt.Sprint(code)
	}
}

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code and context.
// For standard errors, it logs the error string.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorContext(context.Background(), logger, slog.LevelError, msg, err)
}

// LogErrorContext is LogError with a context and level, so trace ids reach
// the record and recoverable failures can be logged as warnings.
func LogErrorContext(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error) {
	attrs := []any{"error", err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := Code(err); code != "" {
			attrs = append(attrs, "code", code)
		}
		if c := oopsErr.Context(); len(c) > 0 {
			attrs = append(attrs, "context", c)
		}
	}
	logger.Log(ctx, level, msg, attrs...)
}
