// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package controller talks to the web server that owns a simulation:
// it downloads the per-simulation passphrase file and reports the
// launch status.
//
// Every call builds a fresh authenticated channel. The bearer token is
// read from the credential store on each request and never cached, and
// connections are not reused between calls. Failures to reach the
// controller are reported as result values rather than errors, because
// a launch on an HPC node must keep going when the web server is
// unreachable.
package controller
