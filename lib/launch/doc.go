// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package launch runs one simulation on an HPC node from encrypted
// inputs to encrypted results.
//
// A launch moves through INIT, RUNNING and one terminal state,
// FINISHED or ERROR:
//
//  1. populate the engine type registry
//  2. build the encryption handler for the simulator gid
//  3. download the passphrase file from the controller
//  4. decrypt the inputs into the plaintext working directory
//  5. load the simulator configuration and parse the disk budget
//  6. report STARTED (the launch is now RUNNING)
//  7. run the engine
//  8. encrypt every file the engine produced
//  9. report FINISHED
//
// Any error or panic in steps 1 through 8 ends the launch in ERROR:
// it is logged, ERROR is reported, and [Orchestrator.Launch] returns
// normally. Each launch reports exactly one terminal status. Status
// reports are best effort and never change the outcome.
package launch
