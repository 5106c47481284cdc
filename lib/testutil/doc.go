// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for tvb-hpc packages.
//
// [NewGID] produces simulator identifiers. [WriteFiles] and [ReadFiles] build and inspect small file
// trees. [NewLogger] returns a JSON slog logger that records into a
// buffer so tests can assert on warnings.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
