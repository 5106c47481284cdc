// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"errors"
	"os"
)

// ErrEmpty is returned by ReadFile when the file holds only whitespace.
var ErrEmpty = errors.New("secret: file is empty")

// ReadFile reads the credential at path into a Buffer with leading and
// trailing whitespace removed. os.ReadFile errors are returned
// unwrapped so callers can test them with errors.Is(err, fs.ErrNotExist).
func ReadFile(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defer Zero(data)

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmpty
	}
	return NewFromBytes(trimmed)
}
