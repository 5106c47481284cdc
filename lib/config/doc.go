// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads tvb-hpc configuration.
//
// Configuration comes from a single YAML file named by the
// TVB_HPC_CONFIG environment variable or the --config flag. When
// neither is given, [Default] is used unchanged; HPC images ship a
// fixed layout and most nodes run without a file.
//
// The file may carry development, staging and production sections
// that override base values for the selected environment. ${VAR} and
// ${VAR:-default} references in paths are expanded after overrides.
package config
