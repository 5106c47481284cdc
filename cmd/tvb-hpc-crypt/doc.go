// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// tvb-hpc-crypt is the controller-side companion of tvb-hpc-launch. It
// prepares the encrypted inputs of a simulation and opens its
// encrypted results:
//
//	tvb-hpc-crypt gid                          print a fresh simulator gid
//	tvb-hpc-crypt passphrase [--prompt] <gid>  store a passphrase file
//	tvb-hpc-crypt seal <gid> <file>...         encrypt inputs
//	tvb-hpc-crypt unseal <gid> <dir>           decrypt results into dir
//
// All subcommands accept --config to select the configuration file;
// the encrypted data and passphrase folders come from its paths
// section.
package main
