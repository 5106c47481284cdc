// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package cosim synchronizes a simulation with an external proxy
// process that computes the state of some nodes (the proxy nodes).
//
// Time is cut into windows of n integration steps, n being the
// synchronization time divided by the step. At every window boundary
// the proxy supplies the proxy-node state for the coming window and
// receives the full state recorded during the window that just ended.
// While a window runs, [Monitor.Sample] replaces the simulated state of
// each proxy node with the supplied one. When the run ends,
// [Monitor.Flush] hands over the record of the last window, so every
// sampled step reaches the proxy exactly once.
//
// With no proxy nodes the monitor only records: its windows hold
// exactly the states it was given.
//
// [Session] carries the exchange over a byte stream as
// length-prefixed CBOR frames.
package cosim
