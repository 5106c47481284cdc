// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress wraps the stream compressors applied to simulation
// artifacts before encryption. A one-byte [Tag] identifies the
// algorithm; the encryption handler stores it in front of every
// compressed payload so decryption needs no configuration.
//
// Tags are format constants. Changing a value breaks every artifact
// already sealed with it.
package compress
