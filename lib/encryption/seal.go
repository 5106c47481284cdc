// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package encryption

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/thevirtualbrain/tvb-hpc/lib/compress"
	"github.com/thevirtualbrain/tvb-hpc/lib/secret"
)

// EncryptInputs seals each plaintext file into
// EncryptedDir()/<outputFolder>/<name>.age and writes the folder's
// manifest. Returns the folder path.
func (handler *Handler) EncryptInputs(paths []string, outputFolder string) (string, error) {
	if outputFolder == "" || outputFolder == "." || outputFolder == ".." || filepath.Base(outputFolder) != outputFolder {
		return "", fmt.Errorf("output folder must be a single folder name, got %q", outputFolder)
	}
	folder := filepath.Join(handler.EncryptedDir(), outputFolder)
	if err := handler.EncryptFolder(paths, folder); err != nil {
		return "", err
	}
	return folder, nil
}

// EncryptFolder seals each plaintext file into sealedDir/<name>.age
// and writes the manifest. Sealed files from an earlier run that are
// not part of this set are removed so the folder matches its manifest.
func (handler *Handler) EncryptFolder(paths []string, sealedDir string) error {
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		if name+ArtifactSuffix == ManifestName {
			return fmt.Errorf("cannot seal %s: %q is reserved for the manifest", path, name)
		}
		if previous, duplicate := seen[name]; duplicate {
			return fmt.Errorf("cannot seal %s and %s into one folder: same name %q", previous, path, name)
		}
		seen[name] = path
	}

	passphrase, err := handler.passphrase()
	if err != nil {
		return err
	}
	defer passphrase.Close()

	recipient, err := age.NewScryptRecipient(passphrase.String())
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if handler.config.WorkFactor > 0 {
		recipient.SetWorkFactor(handler.config.WorkFactor)
	}

	key, err := digestKey(passphrase, handler.simulatorGID)
	if err != nil {
		return err
	}
	defer key.Close()

	if err := os.MkdirAll(sealedDir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", sealedDir, err)
	}

	manifest := &Manifest{Version: manifestVersion, SimulatorGID: handler.simulatorGID}
	for _, path := range paths {
		entry, err := handler.sealFile(path, sealedDir, recipient, key)
		if err != nil {
			return err
		}
		manifest.Artifacts = append(manifest.Artifacts, entry)
		handler.logger.Debug("sealed artifact", "name", entry.Name, "size", entry.Size)
	}

	if err := removeStale(sealedDir, seen); err != nil {
		return err
	}
	if err := writeManifest(filepath.Join(sealedDir, ManifestName), manifest, recipient); err != nil {
		return err
	}

	handler.logger.Info("encrypted artifacts",
		"folder", sealedDir,
		"count", len(manifest.Artifacts),
		"compression", handler.config.Compression.String(),
	)
	return nil
}

func (handler *Handler) sealFile(path, folder string, recipient age.Recipient, key *secret.Buffer) (ManifestEntry, error) {
	source, err := os.Open(path)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return ManifestEntry{}, fmt.Errorf("cannot seal %s: not a regular file", path)
	}

	name := filepath.Base(path)
	tag := handler.config.Compression
	digester := newDigester(key)
	var size int64

	err = writeAtomic(filepath.Join(folder, name+ArtifactSuffix), func(file io.Writer) error {
		encrypted, err := age.Encrypt(file, recipient)
		if err != nil {
			return fmt.Errorf("creating age encryptor: %w", err)
		}
		if _, err := encrypted.Write([]byte{byte(tag)}); err != nil {
			return err
		}
		compressor, err := compress.NewWriter(encrypted, tag)
		if err != nil {
			return err
		}
		size, err = io.Copy(compressor, io.TeeReader(source, digester))
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if err := compressor.Close(); err != nil {
			return fmt.Errorf("finishing %s compression: %w", tag, err)
		}
		if err := encrypted.Close(); err != nil {
			return fmt.Errorf("finalizing age encryption: %w", err)
		}
		return nil
	})
	if err != nil {
		return ManifestEntry{}, err
	}

	return ManifestEntry{
		Name:        name,
		Size:        size,
		Compression: tag,
		Digest:      digester.Sum(nil),
	}, nil
}

// removeStale deletes sealed artifacts in folder whose plaintext name
// is not in keep.
func removeStale(folder string, keep map[string]string) error {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("listing %s: %w", folder, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasSuffix(name, ArtifactSuffix) || name == ManifestName {
			continue
		}
		if _, ok := keep[strings.TrimSuffix(name, ArtifactSuffix)]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(folder, name)); err != nil {
			return fmt.Errorf("removing stale artifact %s: %w", name, err)
		}
	}
	return nil
}
