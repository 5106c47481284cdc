// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential reads the controller bearer token that the
// scheduler delivers out-of-band to the HPC node.
//
// The token is read on every outbound call and never cached. A missing
// or unreadable token file is not fatal: the caller gets an empty token
// and a warning is logged, so a misconfigured node surfaces as a 401
// from the controller instead of a silent local abort.
package credential
