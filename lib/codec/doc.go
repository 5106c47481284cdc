// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration shared by tvb-hpc.
//
// JSON is used only where the controller dictates it (status updates,
// simulator configuration files). CBOR carries everything tvb-hpc owns
// end to end: the sealed artifact manifest and the co-simulation
// window frames exchanged with a proxy process.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same manifest always produces the same bytes before encryption.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
package codec
