// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tvb-hpc.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.PlainDir != "/root/plain" {
		t.Errorf("PlainDir = %q, want /root/plain", cfg.Paths.PlainDir)
	}
	if cfg.Paths.TokenFile != "/root/.tvb-hpc/.token" {
		t.Errorf("TokenFile = %q, want /root/.tvb-hpc/.token", cfg.Paths.TokenFile)
	}
	if cfg.Paths.CryptPassDir != "/root/.tvb-hpc/crypt/pass" {
		t.Errorf("CryptPassDir = %q", cfg.Paths.CryptPassDir)
	}
	if cfg.Profile != ProfileHPC {
		t.Errorf("Profile = %q, want hpc", cfg.Profile)
	}
	if cfg.Controller.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Controller.Timeout)
	}
}

func TestLoadFromEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, `
paths:
  home: /scratch/tvb
controller:
  timeout: 5s
encryption:
  compression: lz4
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.TokenFile != "/scratch/tvb/.token" {
		t.Errorf("TokenFile = %q, want /scratch/tvb/.token", cfg.Paths.TokenFile)
	}
	if cfg.Paths.CryptDataDir != "/scratch/tvb/crypt/data" {
		t.Errorf("CryptDataDir = %q", cfg.Paths.CryptDataDir)
	}
	if cfg.Controller.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Controller.Timeout)
	}
	if cfg.Encryption.Compression != "lz4" {
		t.Errorf("Compression = %q, want lz4", cfg.Encryption.Compression)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: development
paths:
  plain_dir: /root/plain
development:
  paths:
    plain_dir: /tmp/plain-dev
  engine:
    binary: /opt/tvb/bin/stub-engine
    args: ["--fast"]
production:
  paths:
    plain_dir: /ignored
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.PlainDir != "/tmp/plain-dev" {
		t.Errorf("PlainDir = %q, want /tmp/plain-dev", cfg.Paths.PlainDir)
	}
	if cfg.Engine.Binary != "/opt/tvb/bin/stub-engine" {
		t.Errorf("Engine.Binary = %q", cfg.Engine.Binary)
	}
	if len(cfg.Engine.Args) != 1 || cfg.Engine.Args[0] != "--fast" {
		t.Errorf("Engine.Args = %v", cfg.Engine.Args)
	}
}

func TestVariableDefaults(t *testing.T) {
	t.Setenv("TVB_TEST_SCRATCH", "")
	path := writeConfig(t, `
paths:
  plain_dir: ${TVB_TEST_SCRATCH:-/var/tmp}/plain
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.PlainDir != "/var/tmp/plain" {
		t.Errorf("PlainDir = %q, want /var/tmp/plain", cfg.Paths.PlainDir)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	path := writeConfig(t, `
environment: qa
profile: desktop
paths:
  plain_dir: relative/plain
  output_folder: a/b
encryption:
  compression: brotli
`)
	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, fragment := range []string{
		"invalid environment",
		"invalid profile",
		"paths.plain_dir must be absolute",
		"paths.output_folder",
		"encryption.compression",
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q does not mention %q", err, fragment)
		}
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
