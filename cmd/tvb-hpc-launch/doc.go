// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// tvb-hpc-launch runs one simulation on an HPC compute node. The batch
// job invokes it as
//
//	tvb-hpc-launch [--config FILE] <simulator_gid> <available_disk_space> <is_group_launch> <base_url>
//
// It downloads the simulation's passphrase from the controller at
// base_url, decrypts the inputs, runs the engine, encrypts the results
// and reports the status. The exit code is 0 once the launch has run,
// whatever its outcome: the controller learns the outcome from the
// reported status. Invalid arguments exit 1 without contacting the
// controller.
package main
