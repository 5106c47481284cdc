// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/thevirtualbrain/tvb-hpc/lib/encryption"
	"github.com/thevirtualbrain/tvb-hpc/lib/secret"
)

// newGID returns a simulator gid in the form the controller uses: a
// random UUID as 32 hex digits.
func newGID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func runGID(env *environment, args []string) error {
	if err := env.flagSet.Parse(args); err != nil {
		return err
	}
	if len(env.flagSet.Args()) != 0 {
		return fmt.Errorf("gid takes no arguments")
	}
	fmt.Fprintln(env.stdout, newGID())
	return nil
}

func runPassphrase(env *environment, args []string) error {
	var prompt bool
	var name string
	env.flagSet.BoolVar(&prompt, "prompt", false, "read the passphrase instead of generating one")
	env.flagSet.StringVar(&name, "name", "passfile", "file name of the passphrase file")
	positional, err := env.parse(args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("passphrase needs exactly one simulator gid")
	}
	handler, err := env.handler(positional[0])
	if err != nil {
		return err
	}

	var passphrase *secret.Buffer
	if prompt {
		passphrase, err = env.readPassphrase()
	} else {
		passphrase, err = encryption.GeneratePassphrase()
	}
	if err != nil {
		return err
	}
	defer passphrase.Close()

	path, err := handler.WritePassfile(name, passphrase)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, path)
	return nil
}

// readPassphrase reads one line without echo from a terminal, or the
// first line of a non-terminal stdin.
func (env *environment) readPassphrase() (*secret.Buffer, error) {
	if file, ok := env.stdin.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		fmt.Fprint(os.Stderr, "Passphrase: ")
		data, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		return nonEmpty(data)
	}

	line, err := bufio.NewReader(env.stdin).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, fmt.Errorf("reading passphrase from stdin: %w", err)
	}
	return nonEmpty([]byte(strings.TrimRight(string(line), "\r\n")))
}

func nonEmpty(data []byte) (*secret.Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("passphrase is empty")
	}
	return secret.NewFromBytes(data)
}

func runSeal(env *environment, args []string) error {
	positional, err := env.parse(args)
	if err != nil {
		return err
	}
	if len(positional) < 2 {
		return fmt.Errorf("seal needs a simulator gid and at least one file")
	}
	handler, err := env.handler(positional[0])
	if err != nil {
		return err
	}
	if err := handler.EncryptFolder(positional[1:], handler.EncryptedDir()); err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, handler.EncryptedDir())
	return nil
}

func runUnseal(env *environment, args []string) error {
	var folder string
	env.flagSet.StringVar(&folder, "folder", "", "results folder under the encrypted folder (default: paths.output_folder)")
	positional, err := env.parse(args)
	if err != nil {
		return err
	}
	if len(positional) != 2 {
		return fmt.Errorf("unseal needs a simulator gid and a target directory")
	}
	if folder == "" {
		folder = env.config.Paths.OutputFolder
	}
	handler, err := env.handler(positional[0])
	if err != nil {
		return err
	}
	written, err := handler.DecryptFolder(filepath.Join(handler.EncryptedDir(), folder), positional[1])
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintln(env.stdout, path)
	}
	return nil
}
