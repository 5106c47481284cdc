// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filippo.io/age"

	"github.com/thevirtualbrain/tvb-hpc/lib/compress"
	"github.com/thevirtualbrain/tvb-hpc/lib/secret"
)

// DecryptResultsToDir decrypts every artifact in EncryptedDir() into
// plainDir and returns the plaintext paths in name order.
func (handler *Handler) DecryptResultsToDir(plainDir string) ([]string, error) {
	return handler.DecryptFolder(handler.EncryptedDir(), plainDir)
}

// DecryptFolder decrypts the artifacts sealed directly in sealedDir
// (subfolders are ignored) into plainDir. When sealedDir holds a
// manifest, the set of artifacts, their sizes and their digests must
// all match it.
func (handler *Handler) DecryptFolder(sealedDir, plainDir string) ([]string, error) {
	names, hasManifest, err := listArtifacts(sealedDir)
	if err != nil {
		return nil, err
	}

	passphrase, err := handler.passphrase()
	if err != nil {
		return nil, err
	}
	defer passphrase.Close()

	identity, err := age.NewScryptIdentity(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	key, err := digestKey(passphrase, handler.simulatorGID)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	var expected map[string]ManifestEntry
	if hasManifest {
		manifest, err := readManifest(filepath.Join(sealedDir, ManifestName), identity)
		if err != nil {
			return nil, err
		}
		expected, err = handler.checkManifest(manifest, names)
		if err != nil {
			return nil, err
		}
	} else {
		handler.logger.Warn("encrypted folder has no manifest, skipping integrity check", "folder", sealedDir)
	}

	if err := os.MkdirAll(plainDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating %s: %w", plainDir, err)
	}

	written := make([]string, 0, len(names))
	for _, name := range names {
		var want *ManifestEntry
		if entry, ok := expected[name]; ok {
			want = &entry
		}
		target := filepath.Join(plainDir, name)
		if err := unsealFile(filepath.Join(sealedDir, name+ArtifactSuffix), target, identity, key, want); err != nil {
			// No plaintext is left behind from a failed decryption.
			for _, path := range written {
				os.Remove(path)
			}
			return nil, fmt.Errorf("decrypting %s: %w", name, err)
		}
		written = append(written, target)
	}

	handler.logger.Info("decrypted artifacts", "folder", sealedDir, "target", plainDir, "count", len(written))
	return written, nil
}

// listArtifacts returns the plaintext names of the artifacts sealed in
// folder, sorted, and whether the folder has a manifest.
func listArtifacts(folder string) ([]string, bool, error) {
	entries, err := os.ReadDir(folder)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("%w: %s does not exist", ErrNoArtifacts, folder)
	}
	if err != nil {
		return nil, false, fmt.Errorf("listing %s: %w", folder, err)
	}

	var names []string
	hasManifest := false
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasSuffix(name, ArtifactSuffix) || strings.HasPrefix(name, tempPrefix) {
			continue
		}
		if name == ManifestName {
			hasManifest = true
			continue
		}
		names = append(names, strings.TrimSuffix(name, ArtifactSuffix))
	}
	if len(names) == 0 {
		return nil, hasManifest, fmt.Errorf("%w in %s", ErrNoArtifacts, folder)
	}
	sort.Strings(names)
	return names, hasManifest, nil
}

func (handler *Handler) checkManifest(manifest *Manifest, names []string) (map[string]ManifestEntry, error) {
	if manifest.SimulatorGID != handler.simulatorGID {
		return nil, fmt.Errorf("%w: manifest belongs to simulator %q", ErrManifestMismatch, manifest.SimulatorGID)
	}

	expected := make(map[string]ManifestEntry, len(manifest.Artifacts))
	for _, entry := range manifest.Artifacts {
		if filepath.Base(entry.Name) != entry.Name {
			return nil, fmt.Errorf("%w: invalid artifact name %q", ErrManifestMismatch, entry.Name)
		}
		expected[entry.Name] = entry
	}

	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
		if _, ok := expected[name]; !ok {
			return nil, fmt.Errorf("%w: unexpected artifact %q", ErrManifestMismatch, name)
		}
	}
	for name := range expected {
		if !present[name] {
			return nil, fmt.Errorf("%w: artifact %q is missing", ErrManifestMismatch, name)
		}
	}
	return expected, nil
}

func unsealFile(sealedPath, target string, identity age.Identity, key *secret.Buffer, want *ManifestEntry) error {
	source, err := os.Open(sealedPath)
	if err != nil {
		return err
	}
	defer source.Close()

	decrypted, err := age.Decrypt(source, identity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	var header [1]byte
	if _, err := io.ReadFull(decrypted, header[:]); err != nil {
		return fmt.Errorf("%w: reading compression tag: %v", ErrDecrypt, err)
	}
	tag := compress.Tag(header[0])
	if !tag.Valid() {
		return fmt.Errorf("%w: unknown compression tag %d", ErrDecrypt, header[0])
	}
	if want != nil && want.Compression != tag {
		return fmt.Errorf("%w: compression %s, manifest says %s", ErrManifestMismatch, tag, want.Compression)
	}

	decompressor, err := compress.NewReader(decrypted, tag)
	if err != nil {
		return err
	}
	defer decompressor.Close()

	return writeAtomic(target, func(file io.Writer) error {
		digester := newDigester(key)
		size, err := io.Copy(io.MultiWriter(file, digester), decompressor)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecrypt, err)
		}
		if want == nil {
			return nil
		}
		if size != want.Size {
			return fmt.Errorf("%w: %d bytes, manifest says %d", ErrManifestMismatch, size, want.Size)
		}
		if !bytes.Equal(digester.Sum(nil), want.Digest) {
			return fmt.Errorf("%w: digest differs", ErrManifestMismatch)
		}
		return nil
	})
}
