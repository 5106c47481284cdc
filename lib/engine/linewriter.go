// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
)

// maxLineLength splits runaway lines so a subprocess without newlines
// cannot grow the buffer without bound.
const maxLineLength = 64 << 10

// lineWriter logs each line written to it as one record.
type lineWriter struct {
	logger *slog.Logger
	level  slog.Level
	stream string

	mu      sync.Mutex
	pending bytes.Buffer
}

func newLineWriter(logger *slog.Logger, level slog.Level, stream string) *lineWriter {
	return &lineWriter{logger: logger, level: level, stream: stream}
}

func (writer *lineWriter) Write(data []byte) (int, error) {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	writer.pending.Write(data)
	for {
		index := bytes.IndexByte(writer.pending.Bytes(), '\n')
		switch {
		case index >= 0:
			writer.emit(writer.pending.Next(index + 1))
		case writer.pending.Len() >= maxLineLength:
			writer.emit(writer.pending.Next(maxLineLength))
		default:
			return len(data), nil
		}
	}
}

// Flush logs a trailing partial line.
func (writer *lineWriter) Flush() {
	writer.mu.Lock()
	defer writer.mu.Unlock()
	if writer.pending.Len() > 0 {
		writer.emit(writer.pending.Next(writer.pending.Len()))
	}
}

func (writer *lineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return
	}
	writer.logger.Log(context.Background(), writer.level, "engine output", "stream", writer.stream, "line", string(line))
}
