// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Tag identifies a compression algorithm.
type Tag uint8

const (
	// None stores the payload as is. Right for already compressed
	// outputs such as HDF5 with gzip filters or PNG figures.
	None Tag = 0

	// LZ4 is the LZ4 frame format. Fast, modest ratio.
	LZ4 Tag = 1

	// Zstd is the zstd frame format at the default level. Better
	// ratio on JSON configuration and raw float time series.
	Zstd Tag = 2
)

// String returns the configuration name of the tag.
func (tag Tag) String() string {
	switch tag {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// ParseTag parses a configuration name.
func ParseTag(name string) (Tag, error) {
	switch name {
	case "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want zstd, lz4 or none)", name)
	}
}

// Valid reports whether tag is a known algorithm.
func (tag Tag) Valid() bool {
	return tag == None || tag == LZ4 || tag == Zstd
}

// NewWriter returns a writer that compresses into w. Close flushes the
// frame but does not close w.
func NewWriter(w io.Writer, tag Tag) (io.WriteCloser, error) {
	switch tag {
	case None:
		return nopWriteCloser{w}, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	case Zstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		return encoder, nil
	default:
		return nil, fmt.Errorf("unsupported compression tag %d", uint8(tag))
	}
}

// NewReader returns a reader that decompresses r. Close releases
// decoder resources but does not close r.
func NewReader(r io.Reader, tag Tag) (io.ReadCloser, error) {
	switch tag {
	case None:
		return io.NopCloser(r), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		return decoder.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported compression tag %d", uint8(tag))
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
