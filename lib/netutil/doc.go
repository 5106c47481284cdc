// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP helpers shared by the controller client
// and the co-simulation session.
//
// [ErrorBody] reads a bounded error response for logs.
// [AttachmentFilename] recovers the file name from a Content-Disposition
// header and reduces it to a single safe path element. [CopyChunked] streams a download in fixed-size chunks.
// [IsExpectedCloseError] classifies normal stream teardown.
package netutil
