// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine is the launcher's contract with the simulation
// engine. It loads the simulator configuration from the plaintext
// working directory ([Serializer]), checks its component types against
// the [Registry], and runs the engine ([Engine]). [ExecEngine] runs an
// external engine binary and enforces the disk budget on what it
// produced.
package engine
