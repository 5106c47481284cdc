// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package encryption

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/thevirtualbrain/tvb-hpc/lib/netutil"
)

// tempPrefix marks partially written files. They are ignored when
// listing artifacts and passphrase folders.
const tempPrefix = netutil.TempPrefix

// writeAtomic writes path through a temporary sibling and renames it
// into place once fill succeeds. A failed fill leaves no file behind.
func writeAtomic(path string, fill func(io.Writer) error) (err error) {
	temporary, err := os.CreateTemp(filepath.Dir(path), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			temporary.Close()
			os.Remove(temporary.Name())
		}
	}()

	buffered := bufio.NewWriter(temporary)
	if err = fill(buffered); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = buffered.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = temporary.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err = temporary.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err = os.Rename(temporary.Name(), path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// maxManifestSize bounds the sealed manifest read into memory.
const maxManifestSize = 16 << 20

// readFile reads a small sealed file such as the manifest.
func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, maxManifestSize))
}
