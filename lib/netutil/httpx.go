// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"io"
	"strings"
)

// maxErrorBody caps how much of an error body ends up in a log line.
const maxErrorBody = 512

// ErrorBody reads an error response body for diagnostics. Read errors
// are ignored and the result is truncated for logging.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody+1))
	text := strings.TrimSpace(string(data))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return text
}
