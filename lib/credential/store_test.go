// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var output bytes.Buffer
	return slog.New(slog.NewTextHandler(&output, nil)), &output
}

func TestAuthorizationWithToken(t *testing.T) {
	home := t.TempDir()
	path := DefaultTokenPath(home)
	if err := os.WriteFile(path, []byte("eyJhbGciOi.token\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	logger, output := captureLogger()
	store := NewStore(path, logger)
	if got, want := store.Authorization(), "Bearer eyJhbGciOi.token"; got != want {
		t.Errorf("Authorization() = %q, want %q", got, want)
	}
	if output.Len() != 0 {
		t.Errorf("unexpected log output: %s", output.String())
	}
}

func TestAuthorizationDegradesWithoutToken(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, path string)
		message string
	}{
		{
			name:    "missing",
			prepare: func(t *testing.T, path string) {},
			message: "token file was not found",
		},
		{
			name: "empty",
			prepare: func(t *testing.T, path string) {
				if err := os.WriteFile(path, nil, 0o600); err != nil {
					t.Fatal(err)
				}
			},
			message: "token file is empty",
		},
		{
			name: "directory",
			prepare: func(t *testing.T, path string) {
				if err := os.Mkdir(path, 0o700); err != nil {
					t.Fatal(err)
				}
			},
			message: "token file could not be read",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), TokenFileName)
			test.prepare(t, path)

			logger, output := captureLogger()
			store := NewStore(path, logger)
			if got := store.Authorization(); got != "Bearer " {
				t.Errorf("Authorization() = %q, want empty bearer", got)
			}
			if !strings.Contains(output.String(), test.message) {
				t.Errorf("log %q does not mention %q", output.String(), test.message)
			}
		})
	}
}
