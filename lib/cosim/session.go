// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package cosim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/thevirtualbrain/tvb-hpc/lib/codec"
	"github.com/thevirtualbrain/tvb-hpc/lib/netutil"
)

// ErrClosed means the peer closed the stream between frames.
var ErrClosed = errors.New("co-simulation peer closed the stream")

// maxFrameSize bounds one frame: 256 MiB.
const maxFrameSize = 256 << 20

// Session is the simulator end of a co-simulation stream. At each
// window boundary it reads the proxy's Window, exchanges it with the
// monitor, and writes back the completed Record.
type Session struct {
	monitor *Monitor
	stream  io.ReadWriter
}

// NewSession returns a Session driving monitor over stream.
func NewSession(monitor *Monitor, stream io.ReadWriter) *Session {
	return &Session{monitor: monitor, stream: stream}
}

// Synchronize performs one window exchange and returns the record
// sent to the proxy. A final window from the proxy flushes the monitor
// instead; Finished then reports true.
func (session *Session) Synchronize() (Record, error) {
	var next Window
	if err := readFrame(session.stream, &next); err != nil {
		return Record{}, fmt.Errorf("receiving proxy window: %w", err)
	}
	var record Record
	var err error
	if next.Final {
		record, err = session.monitor.Flush()
	} else {
		record, err = session.monitor.Exchange(next)
	}
	if err != nil {
		return Record{}, err
	}
	if err := writeFrame(session.stream, &record); err != nil {
		return Record{}, fmt.Errorf("sending window record: %w", err)
	}
	return record, nil
}

// Finished reports whether the proxy ended the run.
func (session *Session) Finished() bool {
	return session.monitor.Finished()
}

// Proxy is the proxy end of a co-simulation stream.
type Proxy struct {
	stream io.ReadWriter
}

// NewProxy returns a Proxy speaking over stream.
func NewProxy(stream io.ReadWriter) *Proxy {
	return &Proxy{stream: stream}
}

// Send delivers the proxy state of the coming window.
func (proxy *Proxy) Send(window Window) error {
	if err := writeFrame(proxy.stream, &window); err != nil {
		return fmt.Errorf("sending proxy window: %w", err)
	}
	return nil
}

// Receive waits for the record of the window that just ended.
func (proxy *Proxy) Receive() (Record, error) {
	var record Record
	if err := readFrame(proxy.stream, &record); err != nil {
		return Record{}, fmt.Errorf("receiving window record: %w", err)
	}
	return record, nil
}

// Finish ends the run and returns the record of the last window.
func (proxy *Proxy) Finish() (Record, error) {
	if err := proxy.Send(Window{Final: true}); err != nil {
		return Record{}, err
	}
	return proxy.Receive()
}

// writeFrame writes a 4-byte big-endian length followed by the CBOR
// encoding of value.
func writeFrame(w io.Writer, value any) error {
	payload, err := codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	if len(payload) > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds %d", len(payload), maxFrameSize)
	}
	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)
	if _, err := w.Write(frame); err != nil {
		if netutil.IsExpectedCloseError(err) {
			return fmt.Errorf("%w: %v", ErrClosed, err)
		}
		return err
	}
	return nil
}

func readFrame(r io.Reader, value any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if netutil.IsExpectedCloseError(err) {
			return fmt.Errorf("%w: %v", ErrClosed, err)
		}
		return fmt.Errorf("reading frame header: %w", err)
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds %d", size, maxFrameSize)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("reading %d-byte frame: %w", size, err)
	}
	if err := codec.Unmarshal(payload, value); err != nil {
		return fmt.Errorf("decoding frame: %w", err)
	}
	return nil
}
