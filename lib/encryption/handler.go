// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package encryption

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/thevirtualbrain/tvb-hpc/lib/compress"
	"github.com/thevirtualbrain/tvb-hpc/lib/secret"
)

// ArtifactSuffix is appended to the name of every sealed file.
const ArtifactSuffix = ".age"

var (
	// ErrPassfileMissing means no usable passphrase file exists for the
	// simulation. The usual cause is a failed download from the
	// controller.
	ErrPassfileMissing = errors.New("passphrase file is missing")

	// ErrNoArtifacts means the encrypted folder holds nothing to decrypt.
	ErrNoArtifacts = errors.New("no encrypted artifacts found")

	// ErrManifestMismatch means decrypted content disagrees with the
	// sealed manifest.
	ErrManifestMismatch = errors.New("artifacts do not match manifest")

	// ErrDecrypt means an artifact could not be authenticated with the
	// passphrase: wrong passphrase or corrupted file.
	ErrDecrypt = errors.New("artifact failed to decrypt")
)

// Config configures a Handler.
type Config struct {
	// DataDir is the parent of the per-simulation encrypted folders.
	DataDir string

	// PassDir is the parent of the per-simulation passphrase folders.
	PassDir string

	// Compression is applied to artifacts sealed by EncryptInputs.
	Compression compress.Tag

	// WorkFactor is the scrypt log2(N) used when sealing. Zero keeps
	// the age default (18).
	WorkFactor int

	Logger *slog.Logger
}

// Handler encrypts and decrypts the artifacts of one simulation.
type Handler struct {
	simulatorGID string
	config       Config
	logger       *slog.Logger
}

// New returns a Handler for simulatorGID. The identifier becomes a
// folder name, so it must be a single non-empty path element.
func New(simulatorGID string, config Config) (*Handler, error) {
	if err := ValidateGID(simulatorGID); err != nil {
		return nil, err
	}
	if config.DataDir == "" || config.PassDir == "" {
		return nil, fmt.Errorf("encryption: data and passphrase directories are required")
	}
	if !config.Compression.Valid() {
		return nil, fmt.Errorf("encryption: unsupported compression tag %d", uint8(config.Compression))
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		simulatorGID: simulatorGID,
		config:       config,
		logger:       logger.With("simulator_gid", simulatorGID),
	}, nil
}

// ValidateGID checks that gid can serve as a URL path segment and a
// folder name.
func ValidateGID(gid string) error {
	switch {
	case gid == "":
		return fmt.Errorf("simulator gid is empty")
	case gid == "." || gid == "..":
		return fmt.Errorf("simulator gid %q is not a valid folder name", gid)
	case strings.ContainsAny(gid, "/\\\x00"):
		return fmt.Errorf("simulator gid %q contains a path separator", gid)
	}
	return nil
}

// SimulatorGID returns the identifier the handler is keyed by.
func (handler *Handler) SimulatorGID() string {
	return handler.simulatorGID
}

// PasswordFolder is where the controller's passphrase file is stored.
func (handler *Handler) PasswordFolder() string {
	return filepath.Join(handler.config.PassDir, handler.simulatorGID)
}

// EncryptedDir holds the encrypted inputs of the simulation.
func (handler *Handler) EncryptedDir() string {
	return filepath.Join(handler.config.DataDir, handler.simulatorGID)
}

// PasswordFile returns the path of the passphrase file. It fails with
// ErrPassfileMissing when the folder has no regular file.
func (handler *Handler) PasswordFile() (string, error) {
	folder := handler.PasswordFolder()
	entries, err := os.ReadDir(folder)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: folder %s does not exist", ErrPassfileMissing, folder)
	}
	if err != nil {
		return "", fmt.Errorf("listing %s: %w", folder, err)
	}

	var found []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && !strings.HasPrefix(entry.Name(), tempPrefix) {
			found = append(found, entry.Name())
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: %s is empty", ErrPassfileMissing, folder)
	case 1:
		return filepath.Join(folder, found[0]), nil
	default:
		return "", fmt.Errorf("%s holds %d files (%s), expected one passphrase file",
			folder, len(found), strings.Join(found, ", "))
	}
}

// passphrase loads the passphrase into protected memory. The caller
// closes the buffer.
func (handler *Handler) passphrase() (*secret.Buffer, error) {
	path, err := handler.PasswordFile()
	if err != nil {
		return nil, err
	}
	buffer, err := secret.ReadFile(path)
	if errors.Is(err, secret.ErrEmpty) {
		return nil, fmt.Errorf("%w: %s is empty", ErrPassfileMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading passphrase file: %w", err)
	}
	return buffer, nil
}
