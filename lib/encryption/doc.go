// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package encryption seals and unseals the artifacts of one simulation
// with a passphrase shared between the controller and the HPC node.
//
// Each simulator identifier owns two folders:
//
//   - <pass_dir>/<gid>/ holds the passphrase file downloaded from the
//     controller. Its name is chosen by the controller; the handler
//     uses the single regular file it finds there.
//   - <data_dir>/<gid>/ holds the encrypted inputs as <name>.age, and
//     <data_dir>/<gid>/<output_folder>/ receives encrypted results.
//
// An artifact is an age file (scrypt passphrase recipient) whose
// plaintext is one compression tag byte followed by the compressed
// payload. Alongside the artifacts, manifest.cbor.age lists each
// artifact's name, size, compression and a BLAKE3 digest keyed with
// HKDF(passphrase, gid). Decryption verifies the manifest when present.
//
// A [Handler] belongs to one launch and one simulator identifier.
package encryption
