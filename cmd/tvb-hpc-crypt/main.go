// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/thevirtualbrain/tvb-hpc/lib/compress"
	"github.com/thevirtualbrain/tvb-hpc/lib/config"
	"github.com/thevirtualbrain/tvb-hpc/lib/encryption"
	"github.com/thevirtualbrain/tvb-hpc/lib/process"
	"github.com/thevirtualbrain/tvb-hpc/lib/version"
)

const binaryName = "tvb-hpc-crypt"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		process.Fatal(err)
	}
}

// command is one subcommand.
type command struct {
	name    string
	usage   string
	summary string
	run     func(env *environment, args []string) error
}

var commands = []command{
	{"gid", "gid", "print a fresh simulator gid", runGID},
	{"passphrase", "passphrase [--prompt] [--name NAME] <gid>", "store a passphrase file for a simulation", runPassphrase},
	{"seal", "seal <gid> <file>...", "encrypt input files into the simulation's encrypted folder", runSeal},
	{"unseal", "unseal [--folder NAME] <gid> <dir>", "decrypt a simulation's results into dir", runUnseal},
}

// environment is what every subcommand needs.
type environment struct {
	flagSet *pflag.FlagSet
	config  *config.Config
	logger  *slog.Logger
	stdin   io.Reader
	stdout  io.Writer

	configPath string
	workFactor int
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage()
		return nil
	}
	if args[0] == "--version" {
		version.Print(binaryName)
		return nil
	}

	for _, cmd := range commands {
		if cmd.name != args[0] {
			continue
		}
		env := &environment{stdin: stdin, stdout: stdout}
		env.flagSet = pflag.NewFlagSet(binaryName+" "+cmd.name, pflag.ContinueOnError)
		env.flagSet.StringVar(&env.configPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+", then built-in defaults)")
		env.flagSet.IntVar(&env.workFactor, "work-factor", 0, "scrypt work factor (log2 N) for sealing; 0 keeps the default")
		env.flagSet.Usage = func() {
			fmt.Fprintf(os.Stderr, "Usage: %s %s\n\n", binaryName, cmd.usage)
			env.flagSet.PrintDefaults()
		}
		err := cmd.run(env, args[1:])
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	printUsage()
	return fmt.Errorf("unknown command %q", args[0])
}

// parse parses the subcommand flags and loads the configuration.
func (env *environment) parse(args []string) ([]string, error) {
	if err := env.flagSet.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(env.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	env.config = cfg
	env.logger = process.NewLogger(os.Stderr, slog.LevelWarn)
	return env.flagSet.Args(), nil
}

// handler returns the encryption handler of gid.
func (env *environment) handler(gid string) (*encryption.Handler, error) {
	compression, err := compress.ParseTag(env.config.Encryption.Compression)
	if err != nil {
		return nil, err
	}
	return encryption.New(gid, encryption.Config{
		DataDir:     env.config.Paths.CryptDataDir,
		PassDir:     env.config.Paths.CryptPassDir,
		Compression: compression,
		WorkFactor:  env.workFactor,
		Logger:      env.logger,
	})
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags] [args]\n\nCommands:\n", binaryName)
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", cmd.name, cmd.summary)
	}
}
