// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. Used for
// startup failures where no simulator identifier is known yet.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// NewLogger returns the JSON logger every binary writes to w, and
// installs it as the slog default.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
