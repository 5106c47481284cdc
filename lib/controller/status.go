// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/thevirtualbrain/tvb-hpc/lib/netutil"
)

// StatusRoute is the controller path accepting status updates. The
// simulator gid is appended.
const StatusRoute = "/flow/update_status/"

// StatusKey is the JSON field carrying the new status.
const StatusKey = "NEW_STATUS"

// Status is the execution state reported to the controller.
type Status string

const (
	StatusStarted  Status = "STARTED"
	StatusFinished Status = "FINISHED"
	StatusError    Status = "ERROR"
)

// Terminal reports whether status ends a launch.
func (status Status) Terminal() bool {
	return status == StatusFinished || status == StatusError
}

// StatusOutcome classifies a status update.
type StatusOutcome int

const (
	// StatusDelivered means the controller accepted the update.
	StatusDelivered StatusOutcome = iota

	// StatusTransportFailure means the request could not be built or
	// sent, or no response arrived in time.
	StatusTransportFailure

	// StatusRejected means the controller answered non-2xx.
	StatusRejected
)

func (outcome StatusOutcome) String() string {
	switch outcome {
	case StatusDelivered:
		return "delivered"
	case StatusTransportFailure:
		return "transport failure"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("StatusOutcome(%d)", int(outcome))
	}
}

// StatusResult reports one status update.
type StatusResult struct {
	Status     Status
	Outcome    StatusOutcome
	StatusCode int
	Err        error
}

// UpdateStatus tells the controller that simulatorGID moved to status.
// It never returns an error: every failure is logged as a warning and
// described by the result.
func (client *Client) UpdateStatus(ctx context.Context, status Status, simulatorGID string) StatusResult {
	endpoint := client.endpoint(StatusRoute, simulatorGID)
	logger := client.logger.With("simulator_gid", simulatorGID, "status", string(status), "url", endpoint)
	result := StatusResult{Status: status}

	body, err := json.Marshal(map[string]Status{StatusKey: status})
	if err != nil {
		return statusFailure(logger, result, StatusTransportFailure, fmt.Errorf("encoding status: %w", err))
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return statusFailure(logger, result, StatusTransportFailure, fmt.Errorf("building status request: %w", err))
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.channel().Do(request)
	if err != nil {
		return statusFailure(logger, result, StatusTransportFailure, err)
	}
	defer response.Body.Close()

	result.StatusCode = response.StatusCode
	if response.StatusCode < 200 || response.StatusCode > 299 {
		err := fmt.Errorf("HTTP %d: %s", response.StatusCode, netutil.ErrorBody(response.Body))
		return statusFailure(logger, result, StatusRejected, err)
	}

	logger.Info("reported status")
	result.Outcome = StatusDelivered
	return result
}

func statusFailure(logger *slog.Logger, result StatusResult, outcome StatusOutcome, err error) StatusResult {
	logger.Warn("could not update status", "error", err)
	result.Outcome = outcome
	result.Err = err
	return result
}
