// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/thevirtualbrain/tvb-hpc/lib/compress"
	"github.com/thevirtualbrain/tvb-hpc/lib/config"
	"github.com/thevirtualbrain/tvb-hpc/lib/credential"
	"github.com/thevirtualbrain/tvb-hpc/lib/encryption"
	"github.com/thevirtualbrain/tvb-hpc/lib/engine"
	"github.com/thevirtualbrain/tvb-hpc/lib/launch"
	"github.com/thevirtualbrain/tvb-hpc/lib/process"
	"github.com/thevirtualbrain/tvb-hpc/lib/version"
)

const binaryName = "tvb-hpc-launch"

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

// options are the parsed command line.
type options struct {
	configPath  string
	showVersion bool
	params      launch.Params
}

func parseArgs(args []string) (*options, error) {
	var opts options
	flagSet := pflag.NewFlagSet(binaryName, pflag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+", then built-in defaults)")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <simulator_gid> <available_disk_space> <is_group_launch> <base_url>\n\n", binaryName)
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if opts.showVersion {
		return &opts, nil
	}

	positional := flagSet.Args()
	if len(positional) != 4 {
		return nil, fmt.Errorf("expected 4 arguments (simulator_gid available_disk_space is_group_launch base_url), got %d", len(positional))
	}

	gid := positional[0]
	if err := encryption.ValidateGID(gid); err != nil {
		return nil, err
	}
	groupLaunch, err := parseGroupLaunch(positional[2])
	if err != nil {
		return nil, err
	}
	baseURL, err := parseBaseURL(positional[3])
	if err != nil {
		return nil, err
	}

	opts.params = launch.Params{
		SimulatorGID:       gid,
		AvailableDiskSpace: positional[1],
		IsGroupLaunch:      groupLaunch,
		BaseURL:            baseURL,
	}
	return &opts, nil
}

// parseGroupLaunch accepts a JSON boolean in any letter case, so the
// capitalized "True" and "False" are valid.
func parseGroupLaunch(value string) (bool, error) {
	var groupLaunch bool
	if err := json.Unmarshal([]byte(strings.ToLower(value)), &groupLaunch); err != nil {
		return false, fmt.Errorf("is_group_launch must be true or false, got %q", value)
	}
	return groupLaunch, nil
}

func parseBaseURL(value string) (string, error) {
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid base_url %q: %w", value, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("base_url must be an http or https URL, got %q", value)
	}
	return value, nil
}

func run(args []string) error {
	opts, err := parseArgs(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if opts.showVersion {
		version.Print(binaryName)
		return nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	compression, err := compress.ParseTag(cfg.Encryption.Compression)
	if err != nil {
		return err
	}

	logger := process.NewLogger(os.Stderr, slog.LevelInfo)
	logger.Info("starting launch",
		"version", version.Info(),
		"simulator_gid", opts.params.SimulatorGID,
		"environment", string(cfg.Environment),
		"group_launch", opts.params.IsGroupLaunch,
	)

	orchestrator, err := launch.New(orchestratorConfig(cfg, compression, logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orchestrator.Launch(ctx, opts.params)
	return nil
}

// orchestratorConfig wires the launch collaborators from cfg.
func orchestratorConfig(cfg *config.Config, compression compress.Tag, logger *slog.Logger) launch.Config {
	return launch.Config{
		Paths:             cfg.Paths,
		Profile:           cfg.Profile,
		Compression:       compression,
		Credentials:       credential.NewStore(cfg.Paths.TokenFile, logger),
		ControllerTimeout: cfg.Controller.Timeout,
		Registry:          engine.NewRegistry(engine.BuiltinTypes),
		Engine:            engine.NewExecEngine(cfg.Engine, logger),
		Logger:            logger,
	}
}
