// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/thevirtualbrain/tvb-hpc/lib/secret"
)

// TokenFileName is the name of the token file inside the HPC home
// folder mount.
const TokenFileName = ".token"

// DefaultTokenPath returns the token location under homeFolder.
func DefaultTokenPath(homeFolder string) string {
	return filepath.Join(homeFolder, TokenFileName)
}

// Store reads the bearer token from a fixed path.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore returns a Store for the token file at path. A nil logger
// discards the warnings.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{path: path, logger: logger}
}

// Path returns the token file location.
func (store *Store) Path() string {
	return store.path
}

// Token reads the token into protected memory. The returned buffer is
// nil when no usable token exists; that case has already been logged.
// The caller must Close a non-nil buffer.
func (store *Store) Token() *secret.Buffer {
	buffer, err := secret.ReadFile(store.path)
	switch {
	case err == nil:
		return buffer
	case errors.Is(err, fs.ErrNotExist):
		store.logger.Warn("token file was not found", "path", store.path)
	case errors.Is(err, secret.ErrEmpty):
		store.logger.Warn("token file is empty", "path", store.path)
	default:
		store.logger.Warn("token file could not be read", "path", store.path, "error", err)
	}
	return nil
}

// Authorization returns the value of the Authorization header for one
// outbound request. The token part is empty when Token returned nil.
func (store *Store) Authorization() string {
	token := store.Token()
	if token == nil {
		return "Bearer "
	}
	defer token.Close()
	return "Bearer " + token.String()
}
