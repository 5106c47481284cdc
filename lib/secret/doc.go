// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds launch credentials (the controller bearer token
// and the per-simulation passphrase) in memory outside the Go heap.
//
// [Buffer] is backed by an anonymous mmap region that is locked against
// swap and excluded from core dumps. Close zeroes, unlocks and unmaps
// it. Any read after Close panics.
//
// [ReadFile] loads a credential file into a Buffer, trimming
// surrounding whitespace. An empty file yields [ErrEmpty] so callers
// can tell "present but blank" from "absent".
//
// Depends on golang.org/x/sys/unix only.
package secret
