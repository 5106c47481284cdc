// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package encryption

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/thevirtualbrain/tvb-hpc/lib/netutil"
	"github.com/thevirtualbrain/tvb-hpc/lib/secret"
)

// passphraseBytes is the entropy of a generated passphrase.
const passphraseBytes = 32

// GeneratePassphrase returns a fresh random passphrase in protected
// memory. The caller closes it.
func GeneratePassphrase() (*secret.Buffer, error) {
	raw := make([]byte, passphraseBytes)
	defer secret.Zero(raw)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, fmt.Errorf("generating passphrase: %w", err)
	}
	encoded := make([]byte, base64.RawURLEncoding.EncodedLen(len(raw)))
	base64.RawURLEncoding.Encode(encoded, raw)
	return secret.NewFromBytes(encoded)
}

// WritePassfile stores passphrase as name inside PasswordFolder(),
// replacing any passphrase file already there. Returns the path.
func (handler *Handler) WritePassfile(name string, passphrase *secret.Buffer) (string, error) {
	base, err := netutil.SafeBaseName(name)
	if err != nil {
		return "", err
	}
	folder := handler.PasswordFolder()
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return "", fmt.Errorf("creating %s: %w", folder, err)
	}
	if existing, err := handler.PasswordFile(); err == nil && filepath.Base(existing) != base {
		if err := os.Remove(existing); err != nil {
			return "", fmt.Errorf("replacing passphrase file: %w", err)
		}
	}

	path := filepath.Join(folder, base)
	if err := os.WriteFile(path, passphrase.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("writing passphrase file: %w", err)
	}
	return path, nil
}
