// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
)

// ErrNoFilename is returned when a Content-Disposition header carries no
// usable file name.
var ErrNoFilename = errors.New("content-disposition has no usable filename")

// AttachmentFilename parses a Content-Disposition header value and
// returns its filename parameter reduced to a base name. RFC 5987
// extended values (filename*=UTF-8''...) are decoded by mime.
func AttachmentFilename(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", fmt.Errorf("%w: header is empty", ErrNoFilename)
	}
	_, params, err := mime.ParseMediaType(header)
	name, ok := params["filename"]
	if err != nil {
		// An unquoted name with spaces fails strict parsing.
		name, ok = looseFilename(header)
		if !ok {
			return "", fmt.Errorf("parsing content-disposition %q: %w", header, err)
		}
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoFilename, header)
	}
	return SafeBaseName(name)
}

// TempPrefix marks files that are still being written. Readers skip
// them, so no final name may carry it.
const TempPrefix = ".tmp-"

// SafeBaseName reduces name to its last path element. Both slash and
// backslash count as separators. Names that reduce to nothing, ".",
// "..", or a TempPrefix name are rejected.
func SafeBaseName(name string) (string, error) {
	normalized := strings.ReplaceAll(name, `\`, "/")
	normalized = strings.TrimRight(normalized, "/")
	base := path.Base(normalized)
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q", ErrNoFilename, name)
	}
	if strings.ContainsRune(base, 0) {
		return "", fmt.Errorf("%w: %q contains NUL", ErrNoFilename, name)
	}
	if strings.HasPrefix(base, TempPrefix) {
		return "", fmt.Errorf("%w: %q is a temporary file name", ErrNoFilename, name)
	}
	return base, nil
}

// looseFilename finds the filename parameter of a header that
// mime.ParseMediaType rejects. Parameters are split on semicolons
// outside quotes and the value is trimmed. A quoted value is unquoted;
// an unterminated quote is rejected.
func looseFilename(header string) (string, bool) {
	params := splitParams(header)
	if len(params) < 2 {
		return "", false
	}
	for _, param := range params[1:] {
		key, value, found := strings.Cut(param, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "filename") {
			continue
		}
		value = strings.TrimSpace(value)
		if !strings.HasPrefix(value, `"`) {
			return value, true
		}
		if len(value) < 2 || !strings.HasSuffix(value, `"`) {
			return "", false
		}
		return unquote(value[1 : len(value)-1]), true
	}
	return "", false
}

func splitParams(header string) []string {
	var params []string
	quoted, escaped := false, false
	start := 0
	for index, char := range header {
		switch {
		case escaped:
			escaped = false
		case quoted && char == '\\':
			escaped = true
		case char == '"':
			quoted = !quoted
		case char == ';' && !quoted:
			params = append(params, header[start:index])
			start = index + 1
		}
	}
	return append(params, header[start:])
}

// unquote drops the backslash of each quoted-pair.
func unquote(value string) string {
	var builder strings.Builder
	escaped := false
	for _, char := range value {
		if char == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		builder.WriteRune(char)
	}
	return builder.String()
}
