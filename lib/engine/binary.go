// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// BinaryIdentity names the engine build that produced a set of results.
type BinaryIdentity struct {
	// Path is the resolved executable.
	Path string

	// Digest is the hex SHA-256 of the executable's content.
	Digest string
}

// IdentifyBinary resolves binary through PATH when it has no slash and
// hashes the executable. The file is streamed through the hash.
func IdentifyBinary(binary string) (BinaryIdentity, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return BinaryIdentity{}, fmt.Errorf("locating simulation engine: %w", err)
	}
	file, err := os.Open(path)
	if err != nil {
		return BinaryIdentity{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return BinaryIdentity{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return BinaryIdentity{Path: path, Digest: hex.EncodeToString(hasher.Sum(nil))}, nil
}
