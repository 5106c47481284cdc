// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thevirtualbrain/tvb-hpc/lib/testutil"
)

func TestParseDiskSpace(t *testing.T) {
	tests := []struct {
		input string
		want  int64
		valid bool
	}{
		{"0", 0, true},
		{"1048576", 1048576, true},
		{" 2048\n", 2048, true},
		{"-1", 0, false},
		{"", 0, false},
		{"12.5", 0, false},
		{"1e6", 0, false},
		{"lots", 0, false},
	}
	for _, test := range tests {
		got, err := ParseDiskSpace(test.input)
		if (err == nil) != test.valid {
			t.Errorf("ParseDiskSpace(%q) error = %v, want valid=%v", test.input, err, test.valid)
			continue
		}
		if got != test.want {
			t.Errorf("ParseDiskSpace(%q) = %d, want %d", test.input, got, test.want)
		}
	}
}

func TestCollectOutputs(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"b.h5":          "bb",
		"a.h5":          "a",
		"nested/c.json": "ccc",
	})

	paths, err := CollectOutputs(dir)
	if err != nil {
		t.Fatalf("CollectOutputs: %v", err)
	}
	want := []string{filepath.Join(dir, "a.h5"), filepath.Join(dir, "b.h5"), filepath.Join(dir, "nested", "c.json")}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	size, err := DirSize(dir)
	if err != nil {
		t.Fatalf("DirSize: %v", err)
	}
	if size != 6 {
		t.Errorf("DirSize = %d, want 6", size)
	}

	missing, err := CollectOutputs(filepath.Join(dir, "absent"))
	if err != nil || len(missing) != 0 {
		t.Errorf("CollectOutputs on missing dir = %v, %v; want none", missing, err)
	}
}

func TestCheckDiskBudget(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"result.h5": strings.Repeat("x", 3000)})

	if err := CheckDiskBudget(dir, 3); err != nil {
		t.Errorf("3 KiB budget for 3000 bytes: %v", err)
	}
	if err := CheckDiskBudget(dir, 2); !errors.Is(err, ErrDiskBudgetExceeded) {
		t.Errorf("2 KiB budget for 3000 bytes: error = %v, want ErrDiskBudgetExceeded", err)
	}
	if err := CheckDiskBudget(dir, 0); err != nil {
		t.Errorf("zero budget should disable the check: %v", err)
	}
}
