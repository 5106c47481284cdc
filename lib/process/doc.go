// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers used by main() before
// or after the structured logger exists.
package process
