// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build metadata for the tvb-hpc binaries.
// Values are injected with -ldflags, for example:
//
//	go build -ldflags "-X github.com/thevirtualbrain/tvb-hpc/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
