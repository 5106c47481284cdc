// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogBuffer collects JSON log records written by a test logger.
type LogBuffer struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (logs *LogBuffer) Write(data []byte) (int, error) {
	logs.mu.Lock()
	defer logs.mu.Unlock()
	return logs.buffer.Write(data)
}

// Records decodes every record written so far.
func (logs *LogBuffer) Records(t testing.TB) []map[string]any {
	t.Helper()
	logs.mu.Lock()
	defer logs.mu.Unlock()

	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.buffer.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("decoding log line %q: %v", line, err)
		}
		records = append(records, record)
	}
	return records
}

// Find returns the first record at level whose message contains msg.
func (logs *LogBuffer) Find(t testing.TB, level slog.Level, msg string) map[string]any {
	t.Helper()
	for _, record := range logs.Records(t) {
		if record["level"] == level.String() && strings.Contains(record["msg"].(string), msg) {
			return record
		}
	}
	return nil
}

// NewLogger returns a debug-level JSON logger writing into a LogBuffer.
func NewLogger() (*slog.Logger, *LogBuffer) {
	logs := &LogBuffer{}
	handler := slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), logs
}
