// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"io"
)

// CopyChunked copies src to dst reading at most chunkSize bytes at a
// time. Empty reads are skipped. Returns the number of bytes written.
func CopyChunked(dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		return 0, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	chunk := make([]byte, chunkSize)
	var written int64
	for {
		count, readErr := src.Read(chunk)
		if count > 0 {
			n, err := dst.Write(chunk[:count])
			written += int64(n)
			if err != nil {
				return written, err
			}
			if n != count {
				return written, io.ErrShortWrite
			}
		}
		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
