// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock reads so launch timing can be
// tested deterministically. Production code injects [Real]; tests
// inject [Fake] and move time with Advance.
package clock
