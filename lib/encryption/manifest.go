// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package encryption

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"filippo.io/age"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/hkdf"

	"github.com/thevirtualbrain/tvb-hpc/lib/codec"
	"github.com/thevirtualbrain/tvb-hpc/lib/compress"
	"github.com/thevirtualbrain/tvb-hpc/lib/secret"
)

// ManifestName is the sealed manifest inside an artifact folder. The
// plaintext name "manifest.cbor" is reserved.
const ManifestName = "manifest.cbor" + ArtifactSuffix

const manifestVersion = 1

// digestInfo separates the manifest digest key from any other use of
// the passphrase. Changing it invalidates every sealed manifest.
const digestInfo = "tvb-hpc.manifest.digest.v1:"

// Manifest lists the artifacts sealed together in one folder.
type Manifest struct {
	Version      int             `cbor:"version"`
	SimulatorGID string          `cbor:"simulator_gid"`
	Artifacts    []ManifestEntry `cbor:"artifacts"`
}

// ManifestEntry describes one sealed artifact by its plaintext name.
type ManifestEntry struct {
	Name        string       `cbor:"name"`
	Size        int64        `cbor:"size"`
	Compression compress.Tag `cbor:"compression"`
	Digest      []byte       `cbor:"digest"`
}

// digestKey derives the BLAKE3 key for plaintext digests. Keying the
// digest keeps the manifest from confirming guesses about plaintext.
func digestKey(passphrase *secret.Buffer, simulatorGID string) (*secret.Buffer, error) {
	reader := hkdf.New(sha256.New, passphrase.Bytes(), nil, []byte(digestInfo+simulatorGID))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("deriving digest key: %w", err)
	}
	return secret.NewFromBytes(key)
}

// newDigester returns a keyed BLAKE3 hasher.
func newDigester(key *secret.Buffer) *blake3.Hasher {
	hasher, err := blake3.NewKeyed(key.Bytes())
	if err != nil {
		panic("encryption: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

func writeManifest(path string, manifest *Manifest, recipient age.Recipient) error {
	data, err := codec.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return writeAtomic(path, func(file io.Writer) error {
		writer, err := age.Encrypt(file, recipient)
		if err != nil {
			return fmt.Errorf("creating age encryptor: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return err
		}
		return writer.Close()
	})
}

func readManifest(path string, identity age.Identity) (*Manifest, error) {
	ciphertext, err := readFile(path)
	if err != nil {
		return nil, err
	}
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrDecrypt, err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrDecrypt, err)
	}

	var manifest Manifest
	if err := codec.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if manifest.Version != manifestVersion {
		return nil, fmt.Errorf("manifest version %d is not supported (expected %d)", manifest.Version, manifestVersion)
	}
	return &manifest, nil
}
