// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thevirtualbrain/tvb-hpc/lib/compress"
	"github.com/thevirtualbrain/tvb-hpc/lib/encryption"
	"github.com/thevirtualbrain/tvb-hpc/lib/testutil"
)

// writeTestConfig writes a configuration rooted in a temporary
// directory and returns its path and the root.
func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	content := "environment: development\n" +
		"paths:\n" +
		"  home: " + root + "\n" +
		"  plain_dir: " + filepath.Join(root, "plain") + "\n" +
		"  crypt_data_dir: " + filepath.Join(root, "data") + "\n" +
		"  crypt_pass_dir: " + filepath.Join(root, "pass") + "\n" +
		"encryption:\n" +
		"  compression: lz4\n"
	path := filepath.Join(root, "tvb-hpc.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path, root
}

func runCommand(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var stdout bytes.Buffer
	if err := run(args, strings.NewReader(stdin), &stdout); err != nil {
		t.Fatalf("run(%q): %v", args, err)
	}
	return stdout.String()
}

func TestGID(t *testing.T) {
	first := strings.TrimSpace(runCommand(t, "", "gid"))
	second := strings.TrimSpace(runCommand(t, "", "gid"))
	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(first) {
		t.Errorf("gid %q is not 32 hex digits", first)
	}
	if first == second {
		t.Error("two gids are equal")
	}
}

func TestSealAndUnseal(t *testing.T) {
	configPath, root := writeTestConfig(t)
	gid := testutil.NewGID()

	passfile := strings.TrimSpace(runCommand(t, "shared secret\n", "passphrase", "--config", configPath, "--prompt", gid))
	if want := filepath.Join(root, "pass", gid, "passfile"); passfile != want {
		t.Errorf("passphrase path = %q, want %q", passfile, want)
	}
	data, err := os.ReadFile(passfile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "shared secret" {
		t.Errorf("passphrase file holds %q", data)
	}

	inputs := map[string]string{gid + ".json": "{}", "connectivity.zip": "weights"}
	args := append([]string{"seal", "--config", configPath, "--work-factor", "10", gid}, testutil.WriteFiles(t, t.TempDir(), inputs)...)
	sealedDir := strings.TrimSpace(runCommand(t, "", args...))
	if want := filepath.Join(root, "data", gid); sealedDir != want {
		t.Errorf("sealed folder = %q, want %q", sealedDir, want)
	}

	// Results sealed on the node land in the output folder.
	node, err := encryption.New(gid, encryption.Config{
		DataDir:     filepath.Join(root, "data"),
		PassDir:     filepath.Join(root, "pass"),
		Compression: compress.Zstd,
		WorkFactor:  10,
	})
	if err != nil {
		t.Fatal(err)
	}
	plainInputs := t.TempDir()
	if _, err := node.DecryptResultsToDir(plainInputs); err != nil {
		t.Fatalf("node could not decrypt sealed inputs: %v", err)
	}
	if diff := cmp.Diff(inputs, testutil.ReadFiles(t, plainInputs)); diff != "" {
		t.Errorf("decrypted inputs mismatch (-want +got):\n%s", diff)
	}
	results := map[string]string{"time_series.h5": "series"}
	if _, err := node.EncryptInputs(testutil.WriteFiles(t, t.TempDir(), results), "output"); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(t.TempDir(), "results")
	written := strings.Fields(runCommand(t, "", "unseal", "--config", configPath, gid, target))
	if diff := cmp.Diff([]string{filepath.Join(target, "time_series.h5")}, written); diff != "" {
		t.Errorf("unsealed paths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(results, testutil.ReadFiles(t, target)); diff != "" {
		t.Errorf("unsealed results mismatch (-want +got):\n%s", diff)
	}
}

func TestGeneratedPassphrase(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	gid := testutil.NewGID()
	path := strings.TrimSpace(runCommand(t, "", "passphrase", "--config", configPath, "--name", "key", gid))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 43 {
		t.Errorf("generated passphrase is %d bytes, want 43", len(data))
	}
}

func TestRunRejects(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	for _, args := range [][]string{
		{"encrypt"},
		{"gid", "extra"},
		{"passphrase", "--config", configPath},
		{"passphrase", "--config", configPath, "--prompt", "gid"},
		{"seal", "--config", configPath, "gid"},
		{"unseal", "--config", configPath, "gid"},
		{"seal", "--config", configPath, "a/b", "file"},
	} {
		var stdout bytes.Buffer
		if err := run(args, strings.NewReader(""), &stdout); err == nil {
			t.Errorf("run(%q) succeeded", args)
		}
	}
}
