// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"

	"github.com/google/uuid"
)

// NewGID returns a random simulator identifier in the controller's
// format (a UUID without dashes).
func NewGID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}
