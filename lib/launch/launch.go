// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/thevirtualbrain/tvb-hpc/lib/clock"
	"github.com/thevirtualbrain/tvb-hpc/lib/compress"
	"github.com/thevirtualbrain/tvb-hpc/lib/config"
	"github.com/thevirtualbrain/tvb-hpc/lib/controller"
	"github.com/thevirtualbrain/tvb-hpc/lib/credential"
	"github.com/thevirtualbrain/tvb-hpc/lib/encryption"
	"github.com/thevirtualbrain/tvb-hpc/lib/engine"
)

// State is the position of a launch in its state machine.
type State string

const (
	StateInit     State = "INIT"
	StateRunning  State = "RUNNING"
	StateFinished State = "FINISHED"
	StateError    State = "ERROR"
)

// Params are the per-launch arguments received on the command line.
type Params struct {
	SimulatorGID string

	// AvailableDiskSpace is the output budget in KiB as a decimal
	// string. It is parsed during the launch so that a bad value is
	// reported to the controller as ERROR.
	AvailableDiskSpace string

	IsGroupLaunch bool
	BaseURL       string
}

// Outcome describes a finished launch.
type Outcome struct {
	SimulatorGID string
	State        State

	// Err is the failure that ended the launch in StateError.
	Err error

	Passfile controller.PassfileResult

	// Statuses lists every status report attempted, in order.
	Statuses []controller.StatusResult

	// EncryptedFolder holds the encrypted results after StateFinished.
	EncryptedFolder string

	// Outputs are the plaintext result files that were encrypted.
	Outputs []string

	Elapsed time.Duration
}

// Config wires an Orchestrator.
type Config struct {
	Paths       config.PathsConfig
	Profile     config.Profile
	Compression compress.Tag

	// WorkFactor is passed to the encryption handler. Zero keeps the
	// age default.
	WorkFactor int

	Credentials       *credential.Store
	ControllerTimeout time.Duration

	// Transport overrides the HTTP transport used for controller
	// calls. Nil in production.
	Transport http.RoundTripper

	Registry *engine.Registry
	Engine   engine.Engine
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Orchestrator runs launches. One process runs one launch; the type
// holds no per-launch state.
type Orchestrator struct {
	config     Config
	serializer *engine.Serializer
	clock      clock.Clock
	logger     *slog.Logger
}

// New returns an Orchestrator for config. Registry, Engine and
// Credentials are required.
func New(config Config) (*Orchestrator, error) {
	if config.Registry == nil || config.Engine == nil || config.Credentials == nil {
		return nil, fmt.Errorf("launch: registry, engine and credentials are required")
	}
	if config.Paths.PlainDir == "" || config.Paths.OutputFolder == "" {
		return nil, fmt.Errorf("launch: plaintext directory and output folder are required")
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		config:     config,
		serializer: engine.NewSerializer(config.Registry),
		clock:      clk,
		logger:     logger,
	}, nil
}

// Launch runs the simulation named by params.SimulatorGID. It never
// returns an error: the outcome records what happened.
func (orchestrator *Orchestrator) Launch(ctx context.Context, params Params) *Outcome {
	started := orchestrator.clock.Now()
	logger := orchestrator.logger.With("simulator_gid", params.SimulatorGID)
	outcome := &Outcome{SimulatorGID: params.SimulatorGID, State: StateInit}

	client, err := controller.New(controller.Config{
		BaseURL:     params.BaseURL,
		Credentials: orchestrator.config.Credentials,
		Timeout:     orchestrator.config.ControllerTimeout,
		Transport:   orchestrator.config.Transport,
		Logger:      orchestrator.logger,
	})
	if err != nil {
		// Without a controller there is nobody to report ERROR to.
		outcome.State = StateError
		outcome.Err = err
		outcome.Elapsed = clock.Since(orchestrator.clock, started)
		logger.Error("cannot reach controller", "error", err)
		return outcome
	}

	run := &launchRun{
		orchestrator: orchestrator,
		client:       client,
		params:       params,
		outcome:      outcome,
		logger:       logger,
	}
	if err := run.execute(ctx); err != nil {
		outcome.Err = err
		logger.Error("simulation launch failed", "state", string(outcome.State), "error", err)
		run.report(ctx, controller.StatusError)
		outcome.State = StateError
	} else {
		run.report(ctx, controller.StatusFinished)
		outcome.State = StateFinished
	}

	outcome.Elapsed = clock.Since(orchestrator.clock, started)
	logger.Info("simulation launch completed",
		"state", string(outcome.State),
		"elapsed", outcome.Elapsed,
		"outputs", len(outcome.Outputs),
	)
	return outcome
}

// launchRun carries the state of one Launch call.
type launchRun struct {
	orchestrator *Orchestrator
	client       *controller.Client
	params       Params
	outcome      *Outcome
	logger       *slog.Logger
}

// execute runs steps 1 through 8. A panic is converted into an error.
func (run *launchRun) execute(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("launch panicked: %v\n%s", recovered, debug.Stack())
		}
	}()

	cfg := run.orchestrator.config
	gid := run.params.SimulatorGID

	if err := cfg.Registry.Populate(); err != nil {
		return fmt.Errorf("populating engine registry: %w", err)
	}

	handler, err := encryption.New(gid, encryption.Config{
		DataDir:     cfg.Paths.CryptDataDir,
		PassDir:     cfg.Paths.CryptPassDir,
		Compression: cfg.Compression,
		WorkFactor:  cfg.WorkFactor,
		Logger:      run.logger,
	})
	if err != nil {
		return fmt.Errorf("creating encryption handler: %w", err)
	}

	passfile, err := run.client.RetrievePassfile(ctx, gid, handler.PasswordFolder())
	run.outcome.Passfile = passfile
	if err != nil {
		return fmt.Errorf("retrieving passphrase file: %w", err)
	}

	plainDir := cfg.Paths.PlainDir
	if err := os.MkdirAll(plainDir, 0o700); err != nil {
		return fmt.Errorf("creating plaintext directory: %w", err)
	}
	if _, err := handler.DecryptResultsToDir(plainDir); err != nil {
		return fmt.Errorf("decrypting inputs: %w", err)
	}

	simulator, err := run.orchestrator.serializer.DeserializeSimulator(gid, plainDir)
	if err != nil {
		return fmt.Errorf("loading simulator: %w", err)
	}
	budget, err := engine.ParseDiskSpace(run.params.AvailableDiskSpace)
	if err != nil {
		return err
	}

	run.report(ctx, controller.StatusStarted)
	run.outcome.State = StateRunning

	err = cfg.Engine.Run(ctx, engine.Request{
		Simulator:     simulator,
		WorkDir:       plainDir,
		DiskBudgetKiB: budget,
		GroupLaunch:   run.params.IsGroupLaunch,
		Profile:       cfg.Profile,
	})
	if err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}

	outputs, err := engine.CollectOutputs(cfg.Engine.OutputDir(plainDir))
	if err != nil {
		return fmt.Errorf("collecting results: %w", err)
	}
	folder, err := handler.EncryptInputs(outputs, cfg.Paths.OutputFolder)
	if err != nil {
		return fmt.Errorf("encrypting results: %w", err)
	}
	run.outcome.Outputs = outputs
	run.outcome.EncryptedFolder = folder
	return nil
}

// report sends status even after ctx is cancelled; the controller
// timeout bounds the call.
func (run *launchRun) report(ctx context.Context, status controller.Status) {
	result := run.client.UpdateStatus(context.WithoutCancel(ctx), status, run.params.SimulatorGID)
	run.outcome.Statuses = append(run.outcome.Statuses, result)
}
