// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/thevirtualbrain/tvb-hpc/lib/netutil"
)

// PassfileRoute is the controller path serving a simulation's
// passphrase file. The simulator gid is appended.
const PassfileRoute = "/flow/encryption_config/"

// PassfileChunkSize is the read size used when streaming the
// passphrase file to disk.
const PassfileChunkSize = 128

// ErrPassfileMalformed means the controller answered 2xx but the
// response does not name a usable file.
var ErrPassfileMalformed = errors.New("controller sent a malformed passphrase response")

// PassfileOutcome classifies a passphrase download.
type PassfileOutcome int

const (
	// PassfileSaved means the file was written to Path.
	PassfileSaved PassfileOutcome = iota

	// PassfileTransportFailure means the request could not be sent or
	// the controller answered with a non-2xx status. Nothing was
	// written; decryption fails later for lack of a passphrase.
	PassfileTransportFailure

	// PassfileMalformed means a 2xx response without a usable
	// Content-Disposition file name.
	PassfileMalformed
)

func (outcome PassfileOutcome) String() string {
	switch outcome {
	case PassfileSaved:
		return "saved"
	case PassfileTransportFailure:
		return "transport failure"
	case PassfileMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("PassfileOutcome(%d)", int(outcome))
	}
}

// PassfileResult reports a passphrase download.
type PassfileResult struct {
	Outcome PassfileOutcome

	// Path is the written file for PassfileSaved.
	Path string

	// StatusCode is the HTTP status, zero when no response arrived.
	StatusCode int

	// Err describes a failure. For PassfileTransportFailure it has
	// already been logged.
	Err error
}

// RetrievePassfile downloads the passphrase file of simulatorGID into
// folder under the name given by the response's Content-Disposition.
//
// A transport failure is returned as a result with a nil error: the
// caller carries on and the missing passphrase surfaces when
// decrypting. A malformed response or a local write failure is
// returned as an error.
func (client *Client) RetrievePassfile(ctx context.Context, simulatorGID, folder string) (PassfileResult, error) {
	endpoint := client.endpoint(PassfileRoute, simulatorGID)
	logger := client.logger.With("simulator_gid", simulatorGID, "url", endpoint)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return PassfileResult{}, fmt.Errorf("building passphrase request: %w", err)
	}

	response, err := client.channel().Do(request)
	if err != nil {
		logger.Warn("could not request passphrase file", "error", err)
		return PassfileResult{Outcome: PassfileTransportFailure, Err: err}, nil
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		err := fmt.Errorf("HTTP %d: %s", response.StatusCode, netutil.ErrorBody(response.Body))
		logger.Warn("could not request passphrase file", "status_code", response.StatusCode, "error", err)
		return PassfileResult{Outcome: PassfileTransportFailure, StatusCode: response.StatusCode, Err: err}, nil
	}

	name, err := netutil.AttachmentFilename(response.Header.Get("Content-Disposition"))
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrPassfileMalformed, err)
		return PassfileResult{Outcome: PassfileMalformed, StatusCode: response.StatusCode, Err: err}, err
	}

	if err := os.MkdirAll(folder, 0o700); err != nil {
		return PassfileResult{}, fmt.Errorf("creating passphrase folder: %w", err)
	}
	path := filepath.Join(folder, name)
	if err := savePassfile(path, response); err != nil {
		return PassfileResult{}, err
	}

	logger.Info("saved passphrase file", "path", path)
	return PassfileResult{Outcome: PassfileSaved, Path: path, StatusCode: response.StatusCode}, nil
}

// savePassfile streams the response body into a temporary sibling of
// path and renames it into place, so a partial download is never read
// as the passphrase file.
func savePassfile(path string, response *http.Response) (err error) {
	file, err := os.CreateTemp(filepath.Dir(path), netutil.TempPrefix+"passfile-*")
	if err != nil {
		return fmt.Errorf("creating passphrase file: %w", err)
	}
	defer func() {
		if err != nil {
			file.Close()
			os.Remove(file.Name())
		}
	}()

	if err = file.Chmod(0o600); err != nil {
		return fmt.Errorf("restricting passphrase file: %w", err)
	}
	if _, err = netutil.CopyChunked(file, response.Body, PassfileChunkSize); err != nil {
		return fmt.Errorf("downloading passphrase file: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("closing passphrase file: %w", err)
	}
	if err = os.Rename(file.Name(), path); err != nil {
		return fmt.Errorf("saving passphrase file: %w", err)
	}
	return nil
}
