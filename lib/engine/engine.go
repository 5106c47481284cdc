// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/thevirtualbrain/tvb-hpc/lib/config"
)

// OutputFolder is the folder inside the working directory that
// receives the engine's results.
const OutputFolder = "output"

// Request is one engine invocation.
type Request struct {
	Simulator     *Simulator
	WorkDir       string
	DiskBudgetKiB int64
	GroupLaunch   bool
	Profile       config.Profile
}

// Engine runs a simulation to completion.
type Engine interface {
	// Run blocks until the simulation finished. Results are written
	// under OutputDir(request.WorkDir).
	Run(ctx context.Context, request Request) error

	// OutputDir returns where Run leaves results for workDir.
	OutputDir(workDir string) string
}

// ExecEngine runs an external engine binary as a subprocess:
//
//	<binary> [args...] --simulator <file> --work-dir <dir> --output-dir <dir>
//	    --disk-budget-kib <n> [--group-launch]
//
// The environment gains TVB_HPC_RUN=1 and TVB_HPC_PROFILE. Output lines
// are logged at info level (stdout) and warn level (stderr).
type ExecEngine struct {
	Binary string
	Args   []string

	// GracePeriod is the time between SIGTERM and SIGKILL when the
	// context is cancelled. Zero kills immediately.
	GracePeriod time.Duration

	Logger *slog.Logger
}

// NewExecEngine returns an ExecEngine configured from cfg.
func NewExecEngine(cfg config.EngineConfig, logger *slog.Logger) *ExecEngine {
	return &ExecEngine{
		Binary:      cfg.Binary,
		Args:        cfg.Args,
		GracePeriod: cfg.GracePeriod,
		Logger:      logger,
	}
}

func (runner *ExecEngine) OutputDir(workDir string) string {
	return filepath.Join(workDir, OutputFolder)
}

func (runner *ExecEngine) Run(ctx context.Context, request Request) error {
	if request.Simulator == nil || request.Simulator.Source == "" {
		return fmt.Errorf("engine request has no simulator configuration file")
	}
	logger := runner.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("simulator_gid", request.Simulator.GID)

	identity, err := IdentifyBinary(runner.Binary)
	if err != nil {
		return err
	}

	outputDir := runner.OutputDir(request.WorkDir)
	if err := os.MkdirAll(outputDir, 0o700); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	args := append([]string(nil), runner.Args...)
	args = append(args,
		"--simulator", request.Simulator.Source,
		"--work-dir", request.WorkDir,
		"--output-dir", outputDir,
		"--disk-budget-kib", strconv.FormatInt(request.DiskBudgetKiB, 10),
	)
	if request.GroupLaunch {
		args = append(args, "--group-launch")
	}

	cmd := exec.CommandContext(ctx, identity.Path, args...)
	cmd.Dir = request.WorkDir
	cmd.Env = append(os.Environ(), "TVB_HPC_RUN=1", "TVB_HPC_PROFILE="+string(request.Profile))
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = runner.cancelFunc(cmd)

	stdout := newLineWriter(logger, slog.LevelInfo, "stdout")
	stderr := newLineWriter(logger, slog.LevelWarn, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Info("starting simulation engine",
		"binary", identity.Path,
		"binary_sha256", identity.Digest,
		"steps", request.Simulator.Steps(),
	)
	started := time.Now()
	err = cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("simulation engine interrupted: %w", errors.Join(ctxErr, err))
		}
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return fmt.Errorf("simulation engine exited with code %d", exitError.ExitCode())
		}
		return fmt.Errorf("running simulation engine: %w", err)
	}
	logger.Info("simulation engine finished", "duration", time.Since(started))

	return CheckDiskBudget(outputDir, request.DiskBudgetKiB)
}

// cancelFunc signals the engine's whole process group, escalating from
// SIGTERM to SIGKILL after the grace period.
func (runner *ExecEngine) cancelFunc(cmd *exec.Cmd) func() error {
	gracePeriod := runner.GracePeriod
	return func() error {
		processGroupID := -cmd.Process.Pid
		if gracePeriod <= 0 {
			return unix.Kill(processGroupID, unix.SIGKILL)
		}
		if err := unix.Kill(processGroupID, unix.SIGTERM); err != nil {
			return unix.Kill(processGroupID, unix.SIGKILL)
		}
		go func() {
			time.Sleep(gracePeriod)
			// The group may already be gone.
			_ = unix.Kill(processGroupID, unix.SIGKILL)
		}()
		return nil
	}
}
