// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrDiskBudgetExceeded means the engine produced more output than
// the launch allowed.
var ErrDiskBudgetExceeded = errors.New("output exceeds the disk budget")

// ParseDiskSpace parses the available disk space argument: a
// non-negative decimal number of KiB.
func ParseDiskSpace(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	kib, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("available disk space %q is not a decimal KiB count", value)
	}
	if kib < 0 {
		return 0, fmt.Errorf("available disk space %d KiB is negative", kib)
	}
	return kib, nil
}

// CheckDiskBudget returns ErrDiskBudgetExceeded when the regular files
// under dir exceed budgetKiB. A zero budget disables the check.
func CheckDiskBudget(dir string, budgetKiB int64) error {
	if budgetKiB == 0 {
		return nil
	}
	size, err := DirSize(dir)
	if err != nil {
		return err
	}
	if usedKiB := (size + 1023) / 1024; usedKiB > budgetKiB {
		return fmt.Errorf("%w: %d KiB written, %d KiB available", ErrDiskBudgetExceeded, usedKiB, budgetKiB)
	}
	return nil
}

// DirSize sums the sizes of the regular files under dir. A missing dir
// has size zero.
func DirSize(dir string) (int64, error) {
	var total int64
	err := walkFiles(dir, func(path string, info fs.FileInfo) {
		total += info.Size()
	})
	return total, err
}

// CollectOutputs returns the regular files under dir, sorted by path.
// A missing dir yields no files.
func CollectOutputs(dir string) ([]string, error) {
	var paths []string
	if err := walkFiles(dir, func(path string, _ fs.FileInfo) {
		paths = append(paths, path)
	}); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func walkFiles(dir string, visit func(path string, info fs.FileInfo)) error {
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		visit(path, info)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", dir, err)
	}
	return nil
}
