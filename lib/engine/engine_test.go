// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/thevirtualbrain/tvb-hpc/lib/config"
	"github.com/thevirtualbrain/tvb-hpc/lib/testutil"
)

// stubEngine writes an executable shell script standing in for the
// engine binary and returns its path.
func stubEngine(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// argumentEcho records its arguments and environment, then writes two
// results into the output directory.
const argumentEcho = `
printf '%s\n' "$@" > "$PWD/args.txt"
echo "run=$TVB_HPC_RUN profile=$TVB_HPC_PROFILE"
echo "warming up" >&2
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output-dir" ]; then out="$2"; fi
  shift
done
printf 'series' > "$out/time_series.h5"
printf 'summary' > "$out/summary.json"
`

func testRequest(t *testing.T) Request {
	t.Helper()
	return Request{
		Simulator:     &Simulator{GID: "gid", Source: "/plain/gid.json", Integrator: Integrator{DT: 1}, SimulationLength: 10},
		WorkDir:       t.TempDir(),
		DiskBudgetKiB: 1024,
		GroupLaunch:   true,
		Profile:       config.ProfileHPC,
	}
}

func TestExecEngineRun(t *testing.T) {
	logger, logs := testutil.NewLogger()
	engine := &ExecEngine{Binary: stubEngine(t, argumentEcho), Args: []string{"--quiet"}, Logger: logger}
	request := testRequest(t)

	if err := engine.Run(context.Background(), request); err != nil {
		t.Fatalf("Run: %v", err)
	}

	outputDir := engine.OutputDir(request.WorkDir)
	if outputDir != filepath.Join(request.WorkDir, "output") {
		t.Errorf("OutputDir = %q", outputDir)
	}
	if diff := cmp.Diff(map[string]string{"time_series.h5": "series", "summary.json": "summary"}, testutil.ReadFiles(t, outputDir)); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	args, err := os.ReadFile(filepath.Join(request.WorkDir, "args.txt"))
	if err != nil {
		t.Fatal(err)
	}
	wantArgs := []string{
		"--quiet",
		"--simulator", "/plain/gid.json",
		"--work-dir", request.WorkDir,
		"--output-dir", outputDir,
		"--disk-budget-kib", "1024",
		"--group-launch",
	}
	if diff := cmp.Diff(wantArgs, strings.Split(strings.TrimSpace(string(args)), "\n")); diff != "" {
		t.Errorf("arguments mismatch (-want +got):\n%s", diff)
	}

	start := logs.Find(t, slog.LevelInfo, "starting simulation engine")
	if digest, _ := start["binary_sha256"].(string); len(digest) != 64 {
		t.Errorf("start record = %v", start)
	}

	stdout := logs.Find(t, slog.LevelInfo, "engine output")
	if stdout == nil || stdout["line"] != "run=1 profile=hpc" {
		t.Errorf("stdout record = %v", stdout)
	}
	stderr := logs.Find(t, slog.LevelWarn, "engine output")
	if stderr == nil || stderr["line"] != "warming up" || stderr["stream"] != "stderr" {
		t.Errorf("stderr record = %v", stderr)
	}
}

func TestExecEngineExitCode(t *testing.T) {
	engine := &ExecEngine{Binary: stubEngine(t, "exit 3\n")}
	err := engine.Run(context.Background(), testRequest(t))
	if err == nil || !strings.Contains(err.Error(), "code 3") {
		t.Errorf("Run error = %v, want exit code 3", err)
	}
}

func TestExecEngineDiskBudget(t *testing.T) {
	engine := &ExecEngine{Binary: stubEngine(t, argumentEcho)}
	request := testRequest(t)
	request.DiskBudgetKiB = 0
	if err := engine.Run(context.Background(), request); err != nil {
		t.Fatalf("Run with zero budget: %v", err)
	}

	big := stubEngine(t, `
while [ $# -gt 0 ]; do
  if [ "$1" = "--output-dir" ]; then out="$2"; fi
  shift
done
head -c 4096 /dev/zero > "$out/big.bin"
`)
	engine = &ExecEngine{Binary: big}
	request = testRequest(t)
	request.DiskBudgetKiB = 1
	if err := engine.Run(context.Background(), request); !errors.Is(err, ErrDiskBudgetExceeded) {
		t.Errorf("Run error = %v, want ErrDiskBudgetExceeded", err)
	}
}

func TestExecEngineCancel(t *testing.T) {
	engine := &ExecEngine{Binary: stubEngine(t, "sleep 30\n"), GracePeriod: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := engine.Run(ctx, testRequest(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(started); elapsed > 10*time.Second {
		t.Errorf("cancelled engine took %v to stop", elapsed)
	}
}

func TestExecEngineRequiresConfigFile(t *testing.T) {
	engine := &ExecEngine{Binary: "true"}
	request := testRequest(t)
	request.Simulator.Source = ""
	if err := engine.Run(context.Background(), request); err == nil {
		t.Error("Run accepted a simulator without a configuration file")
	}
}

func TestNewExecEngine(t *testing.T) {
	engine := NewExecEngine(config.EngineConfig{Binary: "tvb-simulator", Args: []string{"-v"}, GracePeriod: time.Minute}, nil)
	want := &ExecEngine{Binary: "tvb-simulator", Args: []string{"-v"}, GracePeriod: time.Minute}
	if diff := cmp.Diff(want, engine); diff != "" {
		t.Errorf("engine mismatch (-want +got):\n%s", diff)
	}
}

func TestLineWriterSplitsAndFlushes(t *testing.T) {
	logger, logs := testutil.NewLogger()
	writer := newLineWriter(logger, slog.LevelInfo, "stdout")
	writer.Write([]byte("first\nsec"))
	writer.Write([]byte("ond\r\n\npartial"))
	writer.Flush()

	var lines []string
	for _, record := range logs.Records(t) {
		lines = append(lines, record["line"].(string))
	}
	if diff := cmp.Diff([]string{"first", "second", "partial"}, lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestIdentifyBinary(t *testing.T) {
	path := stubEngine(t, "exit 0\n")
	identity, err := IdentifyBinary(path)
	if err != nil {
		t.Fatalf("IdentifyBinary: %v", err)
	}
	want := sha256.Sum256([]byte("#!/bin/sh\nexit 0\n"))
	if diff := cmp.Diff(BinaryIdentity{Path: path, Digest: hex.EncodeToString(want[:])}, identity); diff != "" {
		t.Errorf("identity mismatch (-want +got):\n%s", diff)
	}

	t.Setenv("PATH", filepath.Dir(path))
	identity, err = IdentifyBinary("engine.sh")
	if err != nil {
		t.Fatalf("IdentifyBinary through PATH: %v", err)
	}
	if identity.Path != path {
		t.Errorf("resolved path = %q, want %q", identity.Path, path)
	}
}

func TestExecEngineMissingBinary(t *testing.T) {
	engine := &ExecEngine{Binary: filepath.Join(t.TempDir(), "absent")}
	if err := engine.Run(context.Background(), testRequest(t)); err == nil {
		t.Error("Run succeeded without an engine binary")
	}
}
